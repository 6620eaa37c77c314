package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ImageAlwaysWins(t *testing.T) {
	c := DefaultClassifier()
	messages := []string{"", "영업시간이 몇시예요?", "보험료 얼마예요?", "hello"}
	businessTypes := []string{"RESTAURANT", "MEDICAL", "INSURANCE", ""}

	for _, msg := range messages {
		for _, bt := range businessTypes {
			assert.Equal(t, ConsultationImage, c.Classify(msg, bt, true), "msg=%q bt=%q", msg, bt)
		}
	}
}

func TestClassify_ExpertBusinessTypes(t *testing.T) {
	c := DefaultClassifier()
	tests := []struct {
		name         string
		message      string
		businessType string
		want         ConsultationType
	}{
		{"medical prescription", "이 증상 처방 가능한가요?", "MEDICAL", ConsultationExpert},
		{"medical lowercase type", "상담 받고 싶어요", "medical", ConsultationExpert},
		{"legal free text", "상담 받고 싶어요", "LEGAL", ConsultationExpert},
		{"postnatal hyphenated", "프로그램 안내 부탁드려요", "postnatal-care", ConsultationExpert},
		{"medical but hours question", "영업시간이 몇시예요?", "MEDICAL", ConsultationSimple},
		{"insurance parking question", "주차 되나요?", "INSURANCE", ConsultationSimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.message, tt.businessType, false))
		})
	}
}

func TestClassify_ExpertKeywordsOnOrdinaryStores(t *testing.T) {
	c := DefaultClassifier()
	for _, msg := range []string{"보험료가 어떻게 되나요", "계약 조건 알려주세요", "시술 후 통증이 있어요"} {
		assert.Equal(t, ConsultationExpert, c.Classify(msg, "RESTAURANT", false), msg)
	}
	// A high-stakes keyword still wins over a simple keyword on ordinary stores.
	assert.Equal(t, ConsultationExpert, c.Classify("계약 가격이 얼마예요?", "CAFE", false))
}

func TestClassify_SimpleDefault(t *testing.T) {
	c := DefaultClassifier()
	assert.Equal(t, ConsultationSimple, c.Classify("영업시간이 몇시예요?", "RESTAURANT", false))
	assert.Equal(t, ConsultationSimple, c.Classify("오늘 예약 가능해요?", "HAIR_SALON", false))
	assert.Equal(t, ConsultationSimple, c.Classify("", "", false))
}

func TestNewClassifierFromYAML(t *testing.T) {
	c, err := NewClassifierFromYAML([]byte(`
expert_business_types: [pet_hospital]
simple_keywords: [hours]
expert_keywords: [vaccine]
`))
	require.NoError(t, err)

	assert.True(t, c.IsExpertBusiness("PET_HOSPITAL"))
	assert.Equal(t, ConsultationExpert, c.Classify("is it ok?", "pet hospital", false))
	assert.Equal(t, ConsultationSimple, c.Classify("Opening HOURS?", "pet_hospital", false))
	assert.Equal(t, ConsultationExpert, c.Classify("Vaccine schedule", "cafe", false))

	_, err = NewClassifierFromYAML([]byte("simple_keywords: [a]"))
	assert.Error(t, err)
	_, err = NewClassifierFromYAML([]byte("::not yaml"))
	assert.Error(t, err)
}
