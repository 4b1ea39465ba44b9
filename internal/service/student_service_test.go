package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/KDrAmina/gimpogugak/internal/dto"
)

func setupTestStudentService() (*studentService, *mockRepos) {
	m := newMockRepos()
	svc := NewStudentService(m.repo, seoul, zap.NewNop()).(*studentService)
	svc.now = fixedNow
	return svc, m
}

func TestDashboard(t *testing.T) {
	svc, m := setupTestStudentService()
	addPending(m, "wait@example.com")
	a := m.addStudent("가", "")
	b := m.addStudent("나", "")
	c := m.addStudent("다", "")
	m.addLesson(a.ID, 4, true)
	m.addLesson(b.ID, 1, true)
	m.addLesson(c.ID, 4, false)

	resp, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("Dashboard 应成功: %v", err)
	}
	if resp.PendingCount != 1 || resp.ActiveLessonCount != 2 || resp.RenewalNeededCount != 1 {
		t.Errorf("统计错误: %+v", resp)
	}
}

func TestListActive_LessonStatus(t *testing.T) {
	svc, m := setupTestStudentService()
	withActive := m.addStudent("가", "")
	withEnded := m.addStudent("나", "")
	m.addStudent("다", "")
	m.addLesson(withEnded.ID, 4, false)
	m.addLesson(withActive.ID, 4, false)
	active := m.addLesson(withActive.ID, 1, true)

	list, err := svc.ListActive(context.Background(), &dto.StudentListQuery{Sort: "name", Order: "asc"})
	if err != nil {
		t.Fatalf("ListActive 应成功: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("期望 3 名学员，实际=%d", len(list))
	}
	want := []string{dto.LessonStatusActive, dto.LessonStatusEnded, dto.LessonStatusNone}
	for i, w := range want {
		if list[i].LessonStatus != w {
			t.Errorf("%s 的课程状态期望 %s，实际=%s", list[i].Name, w, list[i].LessonStatus)
		}
	}
	if list[0].LessonID == nil || *list[0].LessonID != active.ID {
		t.Error("应优先关联进行中的课程")
	}
}

func TestOutreach_TuitionTemplate(t *testing.T) {
	svc, m := setupTestStudentService()
	a := m.addStudent("김가온", "010-1234-5678")
	noPhone := m.addStudent("이무번", "")
	pending := addPending(m, "wait@example.com")

	resp, err := svc.Outreach(context.Background(), &dto.OutreachRequest{
		ProfileIDs: []string{a.ID, noPhone.ID, pending.ID, a.ID, "missing"},
		Type:       dto.OutreachTuition,
	})
	if err != nil {
		t.Fatalf("Outreach 应成功: %v", err)
	}
	if !strings.Contains(resp.Template, "2026년 3월") {
		t.Errorf("缴费提醒模板应包含首尔时区年月: %s", resp.Template)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("重复 ID 应去重，期望 1 条，实际=%d", len(resp.Items))
	}
	item := resp.Items[0]
	if !strings.Contains(item.Message, "김가온님") || strings.Contains(item.Message, "[이름]") {
		t.Errorf("占位符应替换为姓名: %s", item.Message)
	}
	if item.SMSURL == nil || strings.Contains(*item.SMSURL, "+") {
		t.Errorf("短信正文空格应编码为 %%20: %v", item.SMSURL)
	}
	if len(resp.Skipped) != 3 {
		t.Errorf("无号码 / 未激活 / 不存在应跳过，实际=%v", resp.Skipped)
	}
}

func TestOutreach_Errors(t *testing.T) {
	svc, m := setupTestStudentService()
	noPhone := m.addStudent("이무번", "")

	_, err := svc.Outreach(context.Background(), &dto.OutreachRequest{ProfileIDs: []string{noPhone.ID}, Type: dto.OutreachCustom, Template: "  "})
	if !errors.Is(err, ErrEmptyTemplate) {
		t.Errorf("期望 ErrEmptyTemplate，实际: %v", err)
	}

	_, err = svc.Outreach(context.Background(), &dto.OutreachRequest{ProfileIDs: []string{noPhone.ID}, Type: dto.OutreachGeneral})
	if !errors.Is(err, ErrNoRecipients) {
		t.Errorf("期望 ErrNoRecipients，实际: %v", err)
	}
}

func TestOutreach_CustomTemplate(t *testing.T) {
	svc, m := setupTestStudentService()
	p := m.addStudent("박소리", "01098765432")

	resp, err := svc.Outreach(context.Background(), &dto.OutreachRequest{
		ProfileIDs: []string{p.ID},
		Type:       dto.OutreachCustom,
		Template:   "[이름]님, 공연 안내드립니다. [이름]님 꼭 오세요!",
	})
	if err != nil {
		t.Fatalf("Outreach 应成功: %v", err)
	}
	if resp.Items[0].Message != "박소리님, 공연 안내드립니다. 박소리님 꼭 오세요!" {
		t.Errorf("所有占位符都应替换，实际=%s", resp.Items[0].Message)
	}
	if resp.Items[0].KakaoURL == nil || *resp.Items[0].KakaoURL != "https://qr.kakao.com/talk/p/01098765432" {
		t.Errorf("KakaoTalk 链接错误: %v", resp.Items[0].KakaoURL)
	}
}
