package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("Second Register returned error: %v", err)
	}
}

func TestActionsCounter(t *testing.T) {
	before := testutil.ToFloat64(Actions.WithLabelValues("popoForms", "submit", "success"))
	Actions.WithLabelValues("popoForms", "submit", "success").Inc()
	after := testutil.ToFloat64(Actions.WithLabelValues("popoForms", "submit", "success"))
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}
