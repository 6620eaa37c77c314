package reminders

import (
	"fmt"
	"time"
)

var koreanWeekdays = [...]string{"일", "월", "화", "수", "목", "금", "토"}

// FormatKoreanTime renders t as "4월 10일 (금) 오후 2:30" in loc.
func FormatKoreanTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return fmt.Sprintf("%d월 %d일 (%s) %s %d:%02d",
		int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()], meridiem, hour, t.Minute())
}

// LeadLabel renders a lead time as "1시간", "30분" or "2일".
func LeadLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d일", int(d/(24*time.Hour)))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%d시간", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d분", int(d/time.Minute))
	}
}

// MessageTemplate renders the TalkTalk reminder text.
func MessageTemplate(d *DueReminder, storeName string, loc *time.Location) string {
	name := d.CustomerName
	if name == "" {
		name = "고객"
	}
	when := FormatKoreanTime(d.ReservedAt, loc)
	service := ""
	if d.Service != "" {
		service = " " + d.Service
	}

	if d.Lead() >= 24*time.Hour {
		return fmt.Sprintf(
			"[%s] %s님, %s%s 예약이 있습니다.\n일정 변경이나 취소가 필요하시면 이 채팅으로 편하게 말씀해 주세요.",
			storeName, name, when, service,
		)
	}
	return fmt.Sprintf(
		"[%s] %s님, 예약 %s 전 안내드립니다.\n%s%s 예약입니다. 조심히 오세요!",
		storeName, name, LeadLabel(d.Lead()), when, service,
	)
}
