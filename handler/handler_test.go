package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/davidnge/ytconverter-dev/dto"
)

type fakeService struct {
	errs     []error
	calls    int
	recorded []uuid.UUID
}

func (s *fakeService) Process(ctx context.Context, message dto.ConversionMessage) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *fakeService) RecordFailure(ctx context.Context, id uuid.UUID, cause error) {
	s.recorded = append(s.recorded, id)
}

func delivery(t *testing.T, body string) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Body: []byte(body)}
}

func TestConversionHandlerSuccess(t *testing.T) {
	svc := &fakeService{}
	msg := delivery(t, `{"conversionId": "`+uuid.NewString()+`"}`)
	if err := ConversionHandler(context.Background(), msg, ServiceDependencies{ConversionService: svc}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if svc.calls != 1 {
		t.Fatalf("expected one pipeline run, got %d", svc.calls)
	}
}

func TestConversionHandlerRetriesOnce(t *testing.T) {
	svc := &fakeService{errs: []error{errors.New("transient")}}
	msg := delivery(t, `{"conversionId": "`+uuid.NewString()+`"}`)
	if err := ConversionHandler(context.Background(), msg, ServiceDependencies{ConversionService: svc}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if svc.calls != 2 {
		t.Fatalf("expected retry, got %d calls", svc.calls)
	}
	if len(svc.recorded) != 0 {
		t.Fatal("no failure should be recorded when the retry succeeds")
	}
}

func TestConversionHandlerRecordsFailureAfterSecondError(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{errs: []error{errors.New("broken"), errors.New("still broken")}}
	msg := delivery(t, `{"conversionId": "`+id.String()+`"}`)
	if err := ConversionHandler(context.Background(), msg, ServiceDependencies{ConversionService: svc}); err != nil {
		t.Fatalf("handler should swallow the failure after recording it: %v", err)
	}
	if svc.calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", svc.calls)
	}
	if len(svc.recorded) != 1 || svc.recorded[0] != id {
		t.Fatalf("failure not recorded: %v", svc.recorded)
	}
}

func TestConversionHandlerRejectsBadPayload(t *testing.T) {
	svc := &fakeService{}
	if err := ConversionHandler(context.Background(), delivery(t, "{not json"), ServiceDependencies{ConversionService: svc}); err == nil {
		t.Fatal("bad payload should be rejected to the DLQ")
	}
	if svc.calls != 0 {
		t.Fatal("pipeline must not run for a bad payload")
	}
}
