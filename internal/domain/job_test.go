package domain

import "testing"

func TestBulkJobValidateContentSource(t *testing.T) {
	t.Parallel()

	templateID := "t1"
	sequenceID := "seq1"

	job := BulkJob{Channel: ChannelWhatsApp, Status: JobStatusPending, TotalItems: 1}

	if err := job.Validate(); err == nil {
		t.Fatal("job without a content source should fail validation")
	}

	both := job
	both.TemplateID = &templateID
	both.SequenceID = &sequenceID
	if err := both.Validate(); err == nil {
		t.Fatal("job with both content sources should fail validation")
	}

	templated := job
	templated.TemplateID = &templateID
	if err := templated.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	sequenced := job
	sequenced.SequenceID = &sequenceID
	if err := sequenced.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestBulkJobCheckCounters(t *testing.T) {
	t.Parallel()

	job := BulkJob{
		TotalItems:      10,
		ProcessedItems:  6,
		SuccessfulItems: 3,
		FailedItems:     1,
		SkippedItems:    2,
	}
	if err := job.CheckCounters(); err != nil {
		t.Fatalf("CheckCounters() error = %v", err)
	}

	drifted := job
	drifted.FailedItems = 2
	if err := drifted.CheckCounters(); err == nil {
		t.Fatal("processed != sent+failed+skipped should fail")
	}

	overflow := job
	overflow.ProcessedItems = 11
	overflow.SuccessfulItems = 8
	if err := overflow.CheckCounters(); err == nil {
		t.Fatal("processed beyond total should fail")
	}
}
