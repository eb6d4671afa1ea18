package condition

import (
	"context"
	"testing"
)

func TestCompileAndEval(t *testing.T) {
	prog, err := Compile(`result = importance == "high" && days_since_update >= 5`, "importance", "days_since_update")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	tests := []struct {
		name string
		vars map[string]interface{}
		want bool
	}{
		{"matches", map[string]interface{}{"importance": "high", "days_since_update": 6}, true},
		{"too recent", map[string]interface{}{"importance": "high", "days_since_update": 2}, false},
		{"wrong importance", map[string]interface{}{"importance": "low", "days_since_update": 9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prog.Eval(context.Background(), tt.vars)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileRejectsUnknownVariable(t *testing.T) {
	if _, err := Compile(`result = missing > 1`, "importance"); err == nil {
		t.Fatal("expected compile error for undeclared variable")
	}
}

func TestCompileRejectsEmpty(t *testing.T) {
	if _, err := Compile(""); err == nil {
		t.Fatal("expected error for empty condition")
	}
}

func TestEvalWithoutAssignmentIsFalse(t *testing.T) {
	prog, err := Compile(`x := 1`, "client")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := prog.Eval(context.Background(), nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got {
		t.Error("expected false when result is never assigned")
	}
}
