package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/intakebot/core/logger"
)

// Compose renders the submission summary of a completed flow.
func Compose(a Answers) (string, error) {
	switch a.Flow {
	case FlowBuilding:
		b := a.Building
		if b == nil || anyEmpty(b.Name, b.Phone, b.Company, b.Room, b.Problem, b.Description) {
			return "", fmt.Errorf("%w: building", ErrIncompleteAnswers)
		}
		var sb strings.Builder
		sb.WriteString("🏢 Заявка (Приміщення)\n\n")
		fmt.Fprintf(&sb, "👤 %s\n", b.Name)
		fmt.Fprintf(&sb, "📞 %s\n", b.Phone)
		fmt.Fprintf(&sb, "🏢 %s\n", b.Company)
		fmt.Fprintf(&sb, "🚪 Приміщення: %s\n", b.Room)
		fmt.Fprintf(&sb, "🛠 Тип проблеми: %s\n", b.Problem)
		fmt.Fprintf(&sb, "📝 Опис:\n%s", b.Description)
		return sb.String(), nil
	case FlowParking:
		p := a.Parking
		if p == nil || anyEmpty(p.UserInfo, p.Action, p.Cars) {
			return "", fmt.Errorf("%w: parking", ErrIncompleteAnswers)
		}
		var sb strings.Builder
		sb.WriteString("🅿️ Заявка (Паркінг)\n\n")
		fmt.Fprintf(&sb, "👤 %s\n", p.UserInfo)
		fmt.Fprintf(&sb, "⚙️ Дія: %s\n", p.Action)
		fmt.Fprintf(&sb, "🚗 Дані авто:\n%s", p.Cars)
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFlow, a.Flow)
	}
}

func anyEmpty(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// Caption returns the media caption for summary. Documents get their filename
// appended.
func Caption(summary string, media *Media) string {
	if media != nil && media.Kind == MediaDocument {
		return summary + "\n\n📎 " + media.Filename
	}
	return summary
}

// Delivery is the outcome of sending a submission to one recipient.
type Delivery struct {
	ChatID int64
	Err    error
}

// DispatchReport collects per-recipient outcomes of one submission.
type DispatchReport struct {
	SubmissionID string
	Deliveries   []Delivery
}

// Delivered reports whether chatID received the submission.
func (r DispatchReport) Delivered(chatID int64) bool {
	for _, d := range r.Deliveries {
		if d.ChatID == chatID {
			return d.Err == nil
		}
	}
	return false
}

// Err joins all delivery failures.
func (r DispatchReport) Err() error {
	var errs []error
	for _, d := range r.Deliveries {
		if d.Err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", d.ChatID, d.Err))
		}
	}
	return errors.Join(errs...)
}

// Composer sends submissions through a Messenger.
type Composer struct {
	messenger Messenger
}

// NewComposer wraps m.
func NewComposer(m Messenger) *Composer {
	return &Composer{messenger: m}
}

// Dispatch sends summary (with media, if any) to every recipient concurrently.
// A failed send never prevents the others. Duplicate recipients get one copy.
func (c *Composer) Dispatch(ctx context.Context, summary string, media *Media, recipients []int64) DispatchReport {
	report := DispatchReport{SubmissionID: uuid.NewString()}
	seen := make(map[int64]struct{}, len(recipients))
	for _, chatID := range recipients {
		if _, dup := seen[chatID]; dup {
			continue
		}
		seen[chatID] = struct{}{}
		report.Deliveries = append(report.Deliveries, Delivery{ChatID: chatID})
	}

	var g errgroup.Group
	for i := range report.Deliveries {
		d := &report.Deliveries[i]
		g.Go(func() error {
			start := time.Now()
			d.Err = c.send(ctx, d.ChatID, summary, media)
			logDelivery(ctx, report.SubmissionID, d, media, time.Since(start))
			return d.Err
		})
	}
	_ = g.Wait()
	return report
}

func (c *Composer) send(ctx context.Context, chatID int64, summary string, media *Media) error {
	if media == nil {
		return c.messenger.SendText(ctx, chatID, summary, nil)
	}
	caption := Caption(summary, media)
	switch media.Kind {
	case MediaPhoto:
		return c.messenger.SendPhoto(ctx, chatID, media.Handle, caption)
	case MediaVideo:
		return c.messenger.SendVideo(ctx, chatID, media.Handle, caption)
	case MediaDocument:
		return c.messenger.SendDocument(ctx, chatID, media.Handle, caption)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, media.Kind)
	}
}

func logDelivery(ctx context.Context, submissionID string, d *Delivery, media *Media, took time.Duration) {
	kind := "text"
	if media != nil {
		kind = string(media.Kind)
	}
	attrs := []slog.Attr{
		slog.String("submission_id", submissionID),
		slog.Int64("recipient", d.ChatID),
		slog.String("media_kind", kind),
		slog.Duration("duration", took),
	}
	if d.Err != nil {
		attrs = append([]slog.Attr{slog.String("status", "fail")}, attrs...)
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(d.Err.Error(), 256)))
		logger.LogEvent(ctx, logger.Submit, slog.LevelError, "submit.deliver", attrs...)
		return
	}
	attrs = append([]slog.Attr{slog.String("status", "ok")}, attrs...)
	logger.LogEvent(ctx, logger.Submit, slog.LevelInfo, "submit.deliver", attrs...)
}
