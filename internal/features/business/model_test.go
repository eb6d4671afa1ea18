package business

import (
	"testing"
	"time"
)

func TestStageClassification(t *testing.T) {
	tests := []struct {
		name             string
		terminal         bool
		contract         bool
		contractComplete bool
		openContract     bool
	}{
		{name: "상담", terminal: false, contract: false},
		{name: "계약 진행", contract: true, openContract: true},
		{name: "계약 완료", terminal: true, contract: true, contractComplete: true},
		{name: "Contract", contract: true, openContract: true},
		{name: "Contract Completed", terminal: true, contract: true, contractComplete: true},
		{name: "계약 체결", terminal: true, contract: true, contractComplete: true},
		{name: "Contract incomplete", contract: true, openContract: true},
		{name: "계약 미완료", contract: true, openContract: true},
		{name: "Excluded", terminal: true},
		{name: "제외 고객", terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := PipelineStage{Name: tt.name}
			if got := st.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := st.IsContract(); got != tt.contract {
				t.Errorf("IsContract() = %v, want %v", got, tt.contract)
			}
			if got := st.IsContractComplete(); got != tt.contractComplete {
				t.Errorf("IsContractComplete() = %v, want %v", got, tt.contractComplete)
			}
			if got := st.IsOpenContract(); got != tt.openContract {
				t.Errorf("IsOpenContract() = %v, want %v", got, tt.openContract)
			}
		})
	}
}

func TestStagesOf(t *testing.T) {
	stages := NewStages([]PipelineStage{{ID: "s1", Name: "상담"}})

	if st := stages.Of(&Client{StageID: "s1"}); st == nil || st.Name != "상담" {
		t.Errorf("Of(s1) = %v", st)
	}
	if st := stages.Of(&Client{StageID: "missing"}); st != nil {
		t.Errorf("Of(missing) = %v, want nil", st)
	}
	if st := stages.Of(&Client{}); st != nil {
		t.Errorf("Of(unassigned) = %v, want nil", st)
	}
}

func TestClientFallbackDates(t *testing.T) {
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	changed := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	c := Client{UpdatedAt: updated}
	if !c.StageEnteredAt().Equal(updated) || !c.ContractDate().Equal(updated) {
		t.Error("expected fallbacks to UpdatedAt")
	}

	c.StageChangedAt = &changed
	c.ContractedAt = &changed
	if !c.StageEnteredAt().Equal(changed) || !c.ContractDate().Equal(changed) {
		t.Error("expected explicit dates to win")
	}
}
