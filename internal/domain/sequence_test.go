package domain

import (
	"testing"
	"time"
)

func TestSequenceDefinitionValidateStepOrder(t *testing.T) {
	t.Parallel()

	def := SequenceDefinition{
		Name: "cold-outreach",
		Steps: []SequenceStep{
			{StepIndex: 0, Channel: ChannelWhatsApp, TemplateID: "t0", DelayDays: 0},
			{StepIndex: 1, Channel: ChannelEmail, TemplateID: "t1", DelayDays: 3},
		},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	swapped := def
	swapped.Steps = []SequenceStep{
		{StepIndex: 1, Channel: ChannelWhatsApp, TemplateID: "t0"},
		{StepIndex: 0, Channel: ChannelEmail, TemplateID: "t1"},
	}
	if err := swapped.Validate(); err == nil {
		t.Fatal("out-of-order step indexes should fail validation")
	}

	empty := SequenceDefinition{Name: "empty"}
	if err := empty.Validate(); err == nil {
		t.Fatal("sequence without steps should fail validation")
	}
}

func TestSequenceStepDelay(t *testing.T) {
	t.Parallel()

	step := SequenceStep{DelayDays: 7}
	if got := step.Delay(); got != 7*24*time.Hour {
		t.Fatalf("Delay() = %v, want 168h", got)
	}

	negative := SequenceStep{Channel: ChannelSMS, TemplateID: "t1", DelayDays: -1}
	if err := negative.Validate(); err == nil {
		t.Fatal("negative delay should fail validation")
	}
}

func TestSequenceDefinitionStepLookup(t *testing.T) {
	t.Parallel()

	def := SequenceDefinition{
		Name: "s",
		Steps: []SequenceStep{
			{StepIndex: 0, Channel: ChannelWhatsApp, TemplateID: "t0"},
			{StepIndex: 1, Channel: ChannelWhatsApp, TemplateID: "t1"},
		},
	}

	if step := def.Step(1); step == nil || step.TemplateID != "t1" {
		t.Fatalf("Step(1) = %+v, want t1", step)
	}
	if def.Step(2) != nil {
		t.Fatal("Step past the end should be nil")
	}
	if def.Step(-1) != nil {
		t.Fatal("negative Step should be nil")
	}
	if def.IsLastStep(0) {
		t.Fatal("step 0 is not last")
	}
	if !def.IsLastStep(1) {
		t.Fatal("step 1 is last")
	}
}

func TestSequenceEnrollmentValidateDueTime(t *testing.T) {
	t.Parallel()

	due := time.Now().UTC()

	active := SequenceEnrollment{LeadID: "l1", SequenceID: "seq1", Status: EnrollmentStatusActive}
	if err := active.Validate(); err == nil {
		t.Fatal("active enrollment without a due time should fail validation")
	}

	active.NextDueAt = &due
	if err := active.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	stopped := SequenceEnrollment{LeadID: "l1", SequenceID: "seq1", Status: EnrollmentStatusStopped, NextDueAt: &due}
	if err := stopped.Validate(); err == nil {
		t.Fatal("stopped enrollment with a due time should fail validation")
	}
}
