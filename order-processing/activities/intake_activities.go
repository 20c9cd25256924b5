package activities

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.temporal.io/sdk/activity"

	"kalpanik-operations/order-processing/extraction"
	"kalpanik-operations/order-processing/store"
	"kalpanik-operations/order-processing/types"
)

// DefaultUnit is used when neither the request nor the product names a unit
const DefaultUnit = "pcs"

// CaptureIntentInput is the request as received, after extraction
type CaptureIntentInput struct {
	Channel types.Channel
	Payload types.OrderPayload
}

// CaptureIntentResult says whether the request became a VALIDATED intent.
// Issues are set when it did not.
type CaptureIntentResult struct {
	Accepted bool
	Intent   *types.OrderIntent
	Issues   []string
	Warnings []string
	Reason   string
	Events   []types.Event
}

// IntakeActivities turns order requests into intents
type IntakeActivities struct {
	Store     *store.Store
	Extractor extraction.Extractor
	validate  *validator.Validate
}

func NewIntakeActivities(s *store.Store, ex extraction.Extractor) *IntakeActivities {
	if ex == nil {
		ex = extraction.NewRuleExtractor()
	}
	return &IntakeActivities{Store: s, Extractor: ex, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ExtractOrderFields reads structured order fields from free text
func (a *IntakeActivities) ExtractOrderFields(ctx context.Context, text string) (extraction.Extraction, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Extracting order fields", "length", len(text))

	out, err := a.Extractor.Extract(ctx, text)
	if err != nil {
		logger.Warn("Extraction failed", "error", err)
		return extraction.Extraction{}, err
	}
	return out, nil
}

// CaptureIntent validates the payload, resolves the product and stores a
// VALIDATED intent. A malformed payload stores nothing. An unknown product is
// stored as a REJECTED intent.
func (a *IntakeActivities) CaptureIntent(ctx context.Context, in CaptureIntentInput) (CaptureIntentResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Capturing intent", "channel", in.Channel, "customerRef", in.Payload.CustomerRef)

	if err := a.validatePayload(in); err != nil {
		var verr *types.ValidationError
		if !errors.As(err, &verr) {
			return CaptureIntentResult{}, err
		}
		logger.Warn("Order payload rejected", "error", verr)
		return CaptureIntentResult{Issues: fieldIssues(verr), Reason: verr.Error()}, nil
	}

	p := in.Payload
	var warnings []string
	res, err := a.Store.ResolveProduct(p.ProductRef)
	var nf *types.NotFoundError
	switch {
	case errors.As(err, &nf):
		return a.rejectUnknownProduct(ctx, in)
	case err != nil:
		return CaptureIntentResult{}, err
	}
	if res.Ambiguous {
		warnings = append(warnings, fmt.Sprintf("product %q matched %s; also matched %s",
			p.ProductRef, res.Item.ProductID, strings.Join(res.Alternatives, ", ")))
	}

	priority := p.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	unit := p.Unit
	if unit == "" {
		unit = res.Item.Unit
	}
	if unit == "" {
		unit = DefaultUnit
	}

	var intent *types.OrderIntent
	err = a.Store.RunInTransaction(func(tx *store.Tx) error {
		intent = &types.OrderIntent{
			ID:          tx.NextID(types.KindIntent),
			CustomerRef: p.CustomerRef,
			Channel:     in.Channel,
			ProductRef:  res.Item.ProductID,
			Quantity:    *p.Quantity,
			Unit:        unit,
			Priority:    priority,
			Deadline:    strings.TrimSpace(p.Deadline),
			Notes:       p.Notes,
			Status:      types.IntentValidated,
			Warnings:    warnings,
			CreatedAt:   tx.Now(),
		}
		return tx.Put(types.KindIntent, intent)
	})
	if err != nil {
		return CaptureIntentResult{}, fmt.Errorf("failed to store intent: %w", err)
	}

	logger.Info("Intent captured", "intentID", intent.ID, "productID", intent.ProductRef, "quantity", intent.Quantity)
	return CaptureIntentResult{
		Accepted: true,
		Intent:   intent,
		Warnings: warnings,
		Events: []types.Event{{
			Type:     types.EventIntentCreated,
			EntityID: intent.ID,
			Detail:   fmt.Sprintf("%d %s of %s via %s", intent.Quantity, intent.Unit, intent.ProductRef, intent.Channel),
		}},
	}, nil
}

func (a *IntakeActivities) validatePayload(in CaptureIntentInput) error {
	fields := map[string]string{}
	if in.Channel != types.ChannelWeb && in.Channel != types.ChannelChat {
		fields["channel"] = fmt.Sprintf("must be %s or %s", types.ChannelWeb, types.ChannelChat)
	}
	if err := a.validate.Struct(in.Payload); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			fields[fe.Field()] = describe(fe)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &types.ValidationError{Msg: "invalid order request", Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

func fieldIssues(verr *types.ValidationError) []string {
	if len(verr.Fields) == 0 {
		return []string{verr.Msg}
	}
	issues := make([]string, 0, len(verr.Fields))
	for field, problem := range verr.Fields {
		issues = append(issues, field+" "+problem)
	}
	sort.Strings(issues)
	return issues
}

func (a *IntakeActivities) rejectUnknownProduct(ctx context.Context, in CaptureIntentInput) (CaptureIntentResult, error) {
	p := in.Payload
	reason := fmt.Sprintf("PRODUCT_NOT_FOUND: no product matches %q", p.ProductRef)
	var intent *types.OrderIntent
	err := a.Store.RunInTransaction(func(tx *store.Tx) error {
		intent = &types.OrderIntent{
			ID:              tx.NextID(types.KindIntent),
			CustomerRef:     p.CustomerRef,
			Channel:         in.Channel,
			ProductRef:      p.ProductRef,
			Quantity:        *p.Quantity,
			Unit:            p.Unit,
			Priority:        p.Priority,
			Deadline:        p.Deadline,
			Notes:           p.Notes,
			Status:          types.IntentRejected,
			RejectionReason: reason,
			CreatedAt:       tx.Now(),
		}
		return tx.Put(types.KindIntent, intent)
	})
	if err != nil {
		return CaptureIntentResult{}, fmt.Errorf("failed to store rejected intent: %w", err)
	}
	activity.GetLogger(ctx).Warn("Unknown product", "intentID", intent.ID, "productRef", p.ProductRef)
	return CaptureIntentResult{
		Intent: intent,
		Issues: []string{fmt.Sprintf("productRef %q does not match any product", p.ProductRef)},
		Reason: reason,
		Events: []types.Event{{Type: types.EventIntentRejected, EntityID: intent.ID, Detail: reason}},
	}, nil
}
