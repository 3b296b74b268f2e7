package service

import (
	"testing"

	"github.com/harvestlink/internal/constants"
	"github.com/harvestlink/internal/models"
	"github.com/harvestlink/internal/repository"
)

type mockSettingRepo struct {
	values map[string]models.JSON
}

func newMockSettingRepo() *mockSettingRepo {
	return &mockSettingRepo{values: make(map[string]models.JSON)}
}

func (m *mockSettingRepo) GetByKey(key string) (*models.Setting, error) {
	value, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

func (m *mockSettingRepo) Upsert(key string, value models.JSON) (*models.Setting, error) {
	m.values[key] = value
	return &models.Setting{Key: key, ValueJSON: value}, nil
}

var _ repository.SettingRepository = (*mockSettingRepo)(nil)

func TestUpdateOrderSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyOrderConfig, map[string]interface{}{
		constants.SettingFieldPaymentExpireMinutes: "20000",
		"extra": "keep",
	})
	if err != nil {
		t.Fatalf("update order config failed: %v", err)
	}

	minutes, err := parseSettingInt(result[constants.SettingFieldPaymentExpireMinutes])
	if err != nil {
		t.Fatalf("parse payment_expire_minutes failed: %v", err)
	}
	if minutes != 10080 {
		t.Fatalf("unexpected payment_expire_minutes, expected 10080 got %d", minutes)
	}
	if result["extra"] != "keep" {
		t.Fatalf("unexpected extra field: %v", result["extra"])
	}
}

func TestUpdateOrderSettingInvalidValueFallsBack(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyOrderConfig, map[string]interface{}{
		constants.SettingFieldPaymentExpireMinutes: "not-a-number",
	})
	if err != nil {
		t.Fatalf("update order config failed: %v", err)
	}

	minutes, err := parseSettingInt(result[constants.SettingFieldPaymentExpireMinutes])
	if err != nil {
		t.Fatalf("parse payment_expire_minutes failed: %v", err)
	}
	if minutes != 30 {
		t.Fatalf("unexpected payment_expire_minutes, expected 30 got %d", minutes)
	}
}

func TestUpdateSiteSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeySiteConfig, map[string]interface{}{
		"brand": map[string]interface{}{
			"site_name": "  HarvestLink  ",
			"slogan":    123,
		},
		"contact": map[string]interface{}{
			"email": " support@harvestlink.dev ",
		},
	})
	if err != nil {
		t.Fatalf("update site config failed: %v", err)
	}

	brand, ok := result["brand"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid brand payload type: %T", result["brand"])
	}
	if brand["site_name"] != "HarvestLink" {
		t.Fatalf("unexpected brand.site_name: %v", brand["site_name"])
	}
	if brand["slogan"] != "" {
		t.Fatalf("non-string slogan should be dropped, got %v", brand["slogan"])
	}

	contact, ok := result["contact"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid contact payload type: %T", result["contact"])
	}
	if contact["email"] != "support@harvestlink.dev" {
		t.Fatalf("unexpected contact.email: %v", contact["email"])
	}
	if contact["phone"] != "" {
		t.Fatalf("unexpected contact.phone: %v", contact["phone"])
	}
}

func TestUpdateUnknownSettingPassthrough(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update("custom_key", map[string]interface{}{"raw": true})
	if err != nil {
		t.Fatalf("update custom setting failed: %v", err)
	}
	if result["raw"] != true {
		t.Fatalf("unexpected passthrough payload: %+v", result)
	}
}
