// Package messaging 生成发给学员的韩文文案与短信/KakaoTalk 深链接。
// 所有函数均为纯函数，不做任何网络调用。
package messaging

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// NamePlaceholder 群发模板中的姓名占位符
const NamePlaceholder = "[이름]"

const defaultName = "회원"

// minPhoneDigits 去除非数字后少于该位数视为无效号码
const minPhoneDigits = 10

func displayName(name string) string {
	if name == "" {
		return defaultName
	}
	return name
}

// MonthLabel 返回 "2026년 3월" 形式的年月
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%d년 %d월", t.Year(), int(t.Month()))
}

// PersonalGreeting 简短问候，作为对话开头
func PersonalGreeting(name string) string {
	return fmt.Sprintf("안녕하세요 %s님, 김포국악원입니다. ", displayName(name))
}

// TuitionDueMessage 4 次课完成后的缴费通知
func TuitionDueMessage(name, category string) string {
	return fmt.Sprintf("안녕하세요 %s님, 김포국악원입니다.\n\n%s 수업 4회차가 모두 완료되었습니다.\n\n다음 기수 수강을 원하시면 수강료 입금 후 연락 주세요.\n\n감사합니다.",
		displayName(name), category)
}

// TuitionReminderMessage 按月的缴费提醒，月份取自 now
func TuitionReminderMessage(name string, now time.Time) string {
	return Personalize(TuitionReminderTemplate(now), name)
}

// InquiryMessage 学员发给院长的咨询开头
func InquiryMessage(name string) string {
	return fmt.Sprintf("안녕하세요, %s입니다.\n\n수업 관련 문의사항이 있습니다.", displayName(name))
}

// GeneralTemplate 群发的通用模板
func GeneralTemplate() string {
	return "안녕하세요 " + NamePlaceholder + "님, 김포국악원입니다.\n\n"
}

// TuitionReminderTemplate 群发的缴费提醒模板
func TuitionReminderTemplate(now time.Time) string {
	return "안녕하세요 " + NamePlaceholder + "님, 김포국악원입니다.\n\n" +
		MonthLabel(now) + " 수강료 납부를 안내드립니다.\n\n문의사항이 있으시면 언제든 연락 주세요.\n감사합니다."
}

// Personalize 替换模板中所有姓名占位符
func Personalize(template, name string) string {
	return strings.ReplaceAll(template, NamePlaceholder, displayName(name))
}

// Digits 去除号码中的非数字字符
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KakaoTalkURL 按手机号生成 KakaoTalk 1:1 聊天链接，号码无效时 ok=false
func KakaoTalkURL(phone string) (string, bool) {
	digits := Digits(phone)
	if len(digits) < minPhoneDigits {
		return "", false
	}
	return "https://qr.kakao.com/talk/p/" + digits, true
}

// SMSURL 生成带正文的 sms: 链接，号码无效时 ok=false
func SMSURL(phone, body string) (string, bool) {
	digits := Digits(phone)
	if len(digits) < minPhoneDigits {
		return "", false
	}
	return "sms:" + digits + "?body=" + EncodeURIComponent(body), true
}

// 与浏览器 encodeURIComponent 保持一致：空格为 %20，!'()* 不转义
var uriComponentFixer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent 按浏览器 encodeURIComponent 规则编码
func EncodeURIComponent(s string) string {
	return uriComponentFixer.Replace(url.QueryEscape(s))
}
