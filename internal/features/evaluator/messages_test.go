package evaluator

import (
	"context"
	"testing"

	"insure-crm/internal/features/notification"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		text string
		vars Vars
		want string
	}{
		{"substitutes", "{clientName}님 {daysUntil}일", Vars{"clientName": "홍길동", "daysUntil": 3}, "홍길동님 3일"},
		{"unknown placeholder kept", "{clientName} {missing}", Vars{"clientName": "A"}, "A {missing}"},
		{"no vars", "plain", nil, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.text, tt.vars); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type stubTemplates struct{ rows []notification.Template }

func (s *stubTemplates) List(ctx context.Context) ([]notification.Template, error) {
	return s.rows, nil
}
func (s *stubTemplates) ListActive(ctx context.Context, locale string) ([]notification.Template, error) {
	return s.rows, nil
}
func (s *stubTemplates) Upsert(ctx context.Context, t *notification.Template) error { return nil }
func (s *stubTemplates) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return false, nil
}

func TestCatalogOverrides(t *testing.T) {
	cat := NewCatalog(&stubTemplates{rows: []notification.Template{
		{Key: MsgBirthdayToday, Locale: "ko", Message: "{clientName} 고객님 생일 축하!", Active: true},
	}})

	title, msg := cat.Render(MsgBirthdayToday, Vars{"clientName": "이영희"})
	if msg != "오늘은 이영희님의 생일입니다. 축하 메시지를 보내보세요." {
		t.Errorf("built-in message before refresh: %q", msg)
	}

	if err := cat.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	title2, msg2 := cat.Render(MsgBirthdayToday, Vars{"clientName": "이영희"})
	if msg2 != "이영희 고객님 생일 축하!" {
		t.Errorf("override not applied: %q", msg2)
	}
	if title2 != title {
		t.Errorf("empty override title should keep the built-in title, got %q", title2)
	}
}

func TestEveryMessageKeyHasText(t *testing.T) {
	for key, m := range builtinMessages {
		if m.Title == "" || m.Body == "" {
			t.Errorf("%s has empty text", key)
		}
	}
}

var _ notification.TemplateListener = (*Catalog)(nil)
