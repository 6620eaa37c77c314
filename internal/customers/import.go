package customers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

const maxImportRows = 10000

// Header aliases, Korean and English. Matching ignores case and spaces.
var headerAliases = map[string]string{
	"이름": "name", "성함": "name", "고객명": "name", "name": "name", "customer": "name",
	"전화번호": "phone", "연락처": "phone", "휴대폰": "phone", "핸드폰": "phone", "phone": "phone", "mobile": "phone", "tel": "phone",
	"이메일": "email", "email": "email", "e-mail": "email",
	"메모": "memo", "비고": "memo", "memo": "memo", "note": "memo", "notes": "memo",
	"태그": "tags", "tags": "tags", "tag": "tags", "그룹": "tags",
	"방문횟수": "visits", "방문수": "visits", "visits": "visits", "visit_count": "visits",
	"최근방문": "last_visit", "마지막방문": "last_visit", "최근방문일": "last_visit", "last_visit": "last_visit", "lastvisit": "last_visit",
	"톡톡id": "talktalk", "talktalk": "talktalk", "talktalk_user_id": "talktalk",
}

var visitLayouts = []string{"2006-01-02", "2006.01.02", "2006/01/02", "2006-01-02 15:04", "20060102"}

// ErrNoPhoneColumn is returned when the header has no recognizable phone column.
var ErrNoPhoneColumn = errors.New("customers: csv has no phone column")

// ParseCSV reads a CRM export. UTF-8 (with or without BOM) and EUC-KR files
// are accepted. Rows that fail validation are reported, not fatal; duplicate
// phones within the file keep the last row.
func ParseCSV(r io.Reader, loc *time.Location) ([]Customer, []RowError, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("customers: read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
		if err != nil {
			return nil, nil, fmt.Errorf("customers: decode euc-kr: %w", err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("customers: read header: %w", err)
	}
	columns := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if field, ok := headerAliases[key]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["phone"]; !ok {
		return nil, nil, ErrNoPhoneColumn
	}

	var (
		out     []Customer
		rowErrs []RowError
		byPhone = map[string]int{}
		line    = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if line-1 > maxImportRows {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: fmt.Sprintf("row limit %d exceeded", maxImportRows)})
			break
		}
		if blank(record) {
			continue
		}

		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		c := Customer{
			Name:           get("name"),
			Phone:          get("phone"),
			Email:          get("email"),
			Memo:           get("memo"),
			TalkTalkUserID: get("talktalk"),
			Tags:           splitTags(get("tags")),
		}
		if v := get("visits"); v != "" {
			n, err := strconv.Atoi(strings.ReplaceAll(v, ",", ""))
			if err != nil || n < 0 {
				rowErrs = append(rowErrs, RowError{Line: line, Reason: "invalid visit count " + v})
				continue
			}
			c.VisitCount = n
		}
		if v := get("last_visit"); v != "" {
			t, ok := parseVisit(v, loc)
			if !ok {
				rowErrs = append(rowErrs, RowError{Line: line, Reason: "invalid last visit date " + v})
				continue
			}
			c.LastVisitAt = &t
		}
		if err := c.Validate(); err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}

		if idx, seen := byPhone[c.Phone]; seen {
			out[idx] = c
			continue
		}
		byPhone[c.Phone] = len(out)
		out = append(out, c)
	}
	return out, rowErrs, nil
}

func splitTags(v string) []string {
	if v == "" {
		return []string{}
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '|' || r == '/' })
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func parseVisit(v string, loc *time.Location) (time.Time, bool) {
	for _, layout := range visitLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
