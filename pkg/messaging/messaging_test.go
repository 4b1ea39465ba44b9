package messaging

import (
	"strings"
	"testing"
	"time"
)

func TestPersonalGreeting(t *testing.T) {
	if got := PersonalGreeting("김철수"); got != "안녕하세요 김철수님, 김포국악원입니다. " {
		t.Errorf("问候语不符: %q", got)
	}
	if got := PersonalGreeting(""); !strings.Contains(got, "회원님") {
		t.Errorf("空姓名应使用 회원，实际: %q", got)
	}
	// 只有空字符串才回退，空白姓名原样保留
	if got := PersonalGreeting(" "); got != "안녕하세요  님, 김포국악원입니다. " {
		t.Errorf("空白姓名不应回退为 회원，实际: %q", got)
	}
}

func TestTuitionDueMessage(t *testing.T) {
	got := TuitionDueMessage("김철수", "성인개인")
	for _, want := range []string{"김철수님", "성인개인 수업 4회차가 모두 완료되었습니다.", "수강료 입금 후 연락"} {
		if !strings.Contains(got, want) {
			t.Errorf("缴费通知应包含 %q，实际: %q", want, got)
		}
	}
}

func TestTuitionReminderMessage_MonthOfNow(t *testing.T) {
	now := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	got := TuitionReminderMessage("이영희", now)

	if !strings.Contains(got, "2026년 3월 수강료 납부를 안내드립니다.") {
		t.Errorf("提醒应包含 2026년 3월，实际: %q", got)
	}
	if strings.Contains(got, NamePlaceholder) {
		t.Error("提醒中不应残留占位符")
	}
}

func TestInquiryMessage(t *testing.T) {
	want := "안녕하세요, 박민수입니다.\n\n수업 관련 문의사항이 있습니다."
	if got := InquiryMessage("박민수"); got != want {
		t.Errorf("期望 %q，实际 %q", want, got)
	}
}

func TestPersonalize_ReplacesEveryPlaceholder(t *testing.T) {
	got := Personalize("[이름]님 안녕하세요. [이름]님의 수업 안내", "홍길동")
	if got != "홍길동님 안녕하세요. 홍길동님의 수업 안내" {
		t.Errorf("替换结果不符: %q", got)
	}
	if got := Personalize(GeneralTemplate(), ""); got != "안녕하세요 회원님, 김포국악원입니다.\n\n" {
		t.Errorf("空姓名应替换为 회원: %q", got)
	}
}

func TestKakaoTalkURL(t *testing.T) {
	cases := []struct {
		phone  string
		want   string
		wantOK bool
	}{
		{"010-1234-5678", "https://qr.kakao.com/talk/p/01012345678", true},
		{"02 123 4567", "", false},
		{"", "", false},
		{"(010) 9876 5432", "https://qr.kakao.com/talk/p/01098765432", true},
	}
	for _, tc := range cases {
		got, ok := KakaoTalkURL(tc.phone)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("KakaoTalkURL(%q) = (%q, %v)，期望 (%q, %v)", tc.phone, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestSMSURL_EncodesLikeBrowser(t *testing.T) {
	got, ok := SMSURL("010-1234-5678", "안녕 하세요!")
	if !ok {
		t.Fatal("有效号码应返回 ok")
	}
	want := "sms:01012345678?body=%EC%95%88%EB%85%95%20%ED%95%98%EC%84%B8%EC%9A%94!"
	if got != want {
		t.Errorf("期望 %s，实际 %s", want, got)
	}
	if strings.Contains(got, "+") {
		t.Error("空格不应编码为 +")
	}

	if _, ok := SMSURL("12345", "x"); ok {
		t.Error("不足 10 位的号码应返回 ok=false")
	}
}

func TestEncodeURIComponent(t *testing.T) {
	cases := map[string]string{
		"a b":      "a%20b",
		"a+b":      "a%2Bb",
		"(x)*'!~":  "(x)*'!~",
		"\n":       "%0A",
		"a&b=c?d/": "a%26b%3Dc%3Fd%2F",
	}
	for in, want := range cases {
		if got := EncodeURIComponent(in); got != want {
			t.Errorf("EncodeURIComponent(%q) = %q，期望 %q", in, got, want)
		}
	}
}
