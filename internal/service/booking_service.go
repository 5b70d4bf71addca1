package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/perentalassist/hub/internal/models"
	"github.com/perentalassist/hub/internal/observability"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/repository"
)

// Slots are a fixed 30 minutes; the schedule windows are multiples of it.
const (
	slotMinutes  = 30
	slotDuration = slotMinutes * time.Minute
)

// BookingService computes bookable slots and enforces at-most-one booking per
// (doctor, start) slot. Rejections are terminal for the request; the caller
// picks another slot and resubmits.
type BookingService interface {
	Slots(ctx context.Context, doctorID uint, date time.Time) ([]string, error)
	Book(ctx context.Context, userID, doctorID uint, start, end time.Time) (models.Appointment, error)
	ListByUser(ctx context.Context, userID uint) ([]repository.AppointmentRow, error)
}

type bookingService struct {
	doctors   repository.DoctorRepository
	appts     repository.AppointmentRepository
	chats     ChatService
	pusher    Pusher
	videoBase string
	tracer    trace.Tracer
	now       func() time.Time
	log       zerolog.Logger
}

// NewBookingService constructs the booking service. videoBase is the prefix
// for derived per-appointment meeting links.
func NewBookingService(doctors repository.DoctorRepository, appts repository.AppointmentRepository, chats ChatService, pusher Pusher, videoBase string, logger zerolog.Logger) BookingService {
	return &bookingService{
		doctors:   doctors,
		appts:     appts,
		chats:     chats,
		pusher:    pusher,
		videoBase: videoBase,
		tracer:    otel.Tracer("github.com/perentalassist/hub/internal/service/booking"),
		now:       time.Now,
		log:       logger.With().Str("component", "booking_service").Logger(),
	}
}

// isoWeekday maps time.Weekday onto the schedule convention 1=Monday..7=Sunday.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func clockMinutes(clock string) (int, error) {
	t, err := time.Parse(protocol.ClockLayout, clock)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (s *bookingService) Slots(ctx context.Context, doctorID uint, date time.Time) ([]string, error) {
	windows, err := s.doctors.WindowsForDay(ctx, doctorID, isoWeekday(date))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		// Doctor is closed that day.
		return nil, nil
	}

	starts, err := s.appts.StartsOn(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	booked := make(map[string]struct{}, len(starts))
	for _, t := range starts {
		booked[t.Format(protocol.ClockLayout)] = struct{}{}
	}

	now := s.now()
	today := sameDate(date, now)

	var slots []string
	for _, w := range windows {
		from, err := clockMinutes(w.StartTime)
		if err != nil {
			s.log.Warn().Uint("window_id", w.ID).Str("start", w.StartTime).Msg("skipping malformed schedule window")
			continue
		}
		to, err := clockMinutes(w.EndTime)
		if err != nil {
			s.log.Warn().Uint("window_id", w.ID).Str("end", w.EndTime).Msg("skipping malformed schedule window")
			continue
		}

		for m := from; m+slotMinutes <= to; m += slotMinutes {
			clock := formatMinutes(m)
			if _, taken := booked[clock]; taken {
				continue
			}
			if today {
				slotStart := time.Date(date.Year(), date.Month(), date.Day(), m/60, m%60, 0, 0, now.Location())
				if !slotStart.After(now) {
					continue
				}
			}
			slots = append(slots, clock)
		}
	}
	return slots, nil
}

func (s *bookingService) Book(ctx context.Context, userID, doctorID uint, start, end time.Time) (models.Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(
		attribute.Int64("booking.user_id", int64(userID)),
		attribute.Int64("booking.doctor_id", int64(doctorID)),
		attribute.String("booking.start_at", protocol.FormatDateTime(start)),
	))
	defer span.End()

	outcome := "error"
	defer func() {
		span.SetAttributes(attribute.String("booking.outcome", outcome))
		observability.Bookings().WithLabelValues(outcome).Inc()
	}()

	if !start.After(s.now()) {
		outcome = "past"
		return models.Appointment{}, ErrPastStart
	}

	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = "not_found"
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}

	// A start off the slot grid would occupy time the slot list still offers,
	// so overlap prevention requires grid alignment, not just containment.
	if start.Second() != 0 || start.Nanosecond() != 0 {
		outcome = "out_of_schedule"
		return models.Appointment{}, ErrOutOfSchedule
	}

	windows, err := s.doctors.WindowsForDay(ctx, doctorID, isoWeekday(start))
	if err != nil {
		return models.Appointment{}, err
	}

	slotStart := start.Hour()*60 + start.Minute()
	contained := false
	for _, w := range windows {
		from, err := clockMinutes(w.StartTime)
		if err != nil {
			continue
		}
		to, err := clockMinutes(w.EndTime)
		if err != nil {
			continue
		}
		if from <= slotStart && slotStart+slotMinutes <= to && (slotStart-from)%slotMinutes == 0 {
			contained = true
			break
		}
	}
	if !contained {
		outcome = "out_of_schedule"
		return models.Appointment{}, ErrOutOfSchedule
	}

	// Advisory pre-check for a friendly fast path. The unique index on
	// (doctor_id, start_at) is what actually decides races.
	if taken, err := s.appts.ExistsAt(ctx, doctorID, start); err != nil {
		return models.Appointment{}, err
	} else if taken {
		outcome = "already_booked"
		return models.Appointment{}, ErrSlotTaken
	}

	appt := models.Appointment{
		UserID:   userID,
		DoctorID: doctorID,
		StartAt:  start,
		EndAt:    start.Add(slotDuration),
	}
	if err := s.appts.Create(ctx, &appt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			outcome = "already_booked"
			return models.Appointment{}, ErrSlotTaken
		}
		span.RecordError(err)
		return models.Appointment{}, err
	}

	appt.VideoURL = fmt.Sprintf("%sperentalassist_%d", s.videoBase, appt.ID)
	if err := s.appts.SetVideoURL(ctx, appt.ID, appt.VideoURL); err != nil {
		s.log.Warn().Err(err).Uint("appointment_id", appt.ID).Msg("failed to backfill video link")
	}

	if doctor.UserID != 0 {
		s.announce(ctx, userID, doctor, appt)
	}

	outcome = "ok"
	s.log.Info().
		Uint("appointment_id", appt.ID).
		Uint("doctor_id", doctorID).
		Time("start_at", appt.StartAt).
		Msg("appointment booked")
	return appt, nil
}

// announce drops a confirmation message into the parent/doctor conversation
// and nudges the doctor's live connections. Announcement failures never fail
// the booking itself.
func (s *bookingService) announce(ctx context.Context, userID uint, doctor models.Doctor, appt models.Appointment) {
	conv, err := s.chats.OpenConversation(ctx, userID, doctor.UserID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to open confirmation conversation")
		return
	}

	text := fmt.Sprintf("Appointment confirmed for %s. Join: %s", protocol.FormatDateTime(appt.StartAt), appt.VideoURL)
	if _, err := s.chats.Send(ctx, conv.ID, doctor.UserID, text); err != nil {
		s.log.Warn().Err(err).Msg("failed to send confirmation message")
	}

	s.pusher.SendToUser(doctor.UserID, protocol.Join(
		"NOTIFY",
		"APPT",
		strconv.FormatUint(uint64(appt.ID), 10),
		protocol.FormatDateTime(appt.StartAt),
	))
}

func (s *bookingService) ListByUser(ctx context.Context, userID uint) ([]repository.AppointmentRow, error) {
	return s.appts.ListByUser(ctx, userID)
}
