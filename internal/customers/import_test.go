package customers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

var seoul = time.FixedZone("KST", 9*60*60)

func TestParseCSV_KoreanHeaders(t *testing.T) {
	csvText := "\ufeff이름,연락처,이메일,메모,태그,방문횟수,최근 방문\n" +
		"김민수,010-1234-5678,minsu@example.com,알러지 있음,VIP;단골,12,2026.03.14\n" +
		"이서연,+82 10 9876 5432,,,,,\n" +
		",,,,,,\n" +
		"박지훈,12345,,,,,\n" +
		"김민수(수정),01012345678,,,,3,\n"

	list, rowErrs, err := ParseCSV(strings.NewReader(csvText), seoul)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "김민수(수정)", list[0].Name)
	assert.Equal(t, "01012345678", list[0].Phone)
	assert.Equal(t, 3, list[0].VisitCount)

	assert.Equal(t, "이서연", list[1].Name)
	assert.Equal(t, "01098765432", list[1].Phone)
	assert.Equal(t, []string{}, list[1].Tags)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 5, rowErrs[0].Line)
	assert.Contains(t, rowErrs[0].Reason, "invalid phone")
}

func TestParseCSV_EnglishHeadersAndFields(t *testing.T) {
	csvText := "Name,Phone,Tags,Visits,Last Visit,Notes\n" +
		"Jane,02-123-4567,new|event,1,2026-01-05,hello\n" +
		"Bad Visits,010-1111-2222,,many,,\n" +
		"Bad Date,010-3333-4444,,,05/01/2026,\n"

	list, rowErrs, err := ParseCSV(strings.NewReader(csvText), seoul)
	require.NoError(t, err)
	require.Len(t, list, 1)
	c := list[0]
	assert.Equal(t, "021234567", c.Phone)
	assert.Equal(t, []string{"new", "event"}, c.Tags)
	assert.Equal(t, "hello", c.Memo)
	require.NotNil(t, c.LastVisitAt)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, seoul), *c.LastVisitAt)
	assert.Len(t, rowErrs, 2)
}

func TestParseCSV_EUCKR(t *testing.T) {
	utf := "고객명,휴대폰\n홍길동,010-2222-3333\n"
	encoded, _, err := transform.Bytes(korean.EUCKR.NewEncoder(), []byte(utf))
	require.NoError(t, err)

	list, _, err := ParseCSV(bytes.NewReader(encoded), nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "홍길동", list[0].Name)
}

func TestParseCSV_NoPhoneColumn(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("이름,주소\n김,서울\n"), nil)
	assert.ErrorIs(t, err, ErrNoPhoneColumn)
}

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"010-1234-5678":    "01012345678",
		"+82-10-1234-5678": "01012345678",
		"821012345678":     "01012345678",
		"(031) 123-4567":   "0311234567",
	}
	for in, want := range tests {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "1234", "1012345678", "0101234567890"} {
		_, err := NormalizePhone(bad)
		assert.ErrorIs(t, err, ErrInvalidPhone, bad)
	}
}
