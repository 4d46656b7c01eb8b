package service

import (
	"log/slog"
	"strings"
	"time"

	"humrah/internal/domain"
	"humrah/internal/metrics"
	"humrah/internal/models"
	"humrah/internal/repository"
	"humrah/pkg/apperrors"
	"humrah/pkg/location"

	"gorm.io/gorm"
)

// BookingService owns the random-booking lifecycle: validated creation
// under the weekly quota, eligibility discovery, the first-come-first-
// served accept, cancellation and meetup completion.
type BookingService struct {
	db       *gorm.DB
	bookings *repository.BookingRepository
	users    *repository.UserRepository
	quota    *QuotaService
	chats    *ChatService

	geoRadiusKm float64
}

func NewBookingService(db *gorm.DB, bookings *repository.BookingRepository, users *repository.UserRepository, quota *QuotaService, chats *ChatService, geoRadiusKm float64) *BookingService {
	if geoRadiusKm <= 0 {
		geoRadiusKm = domain.DefaultGeoKm
	}
	return &BookingService{
		db:          db,
		bookings:    bookings,
		users:       users,
		quota:       quota,
		chats:       chats,
		geoRadiusKm: geoRadiusKm,
	}
}

// CreateOfferInput is the validated create payload.
type CreateOfferInput struct {
	Destination     string    `json:"destination"`
	City            string    `json:"city"`
	Area            string    `json:"area"`
	Date            time.Time `json:"date"`
	WindowStart     string    `json:"window_start"`
	WindowEnd       string    `json:"window_end"`
	PreferredGender string    `json:"preferred_gender"`
	AgeMin          int       `json:"age_min"`
	AgeMax          int       `json:"age_max"`
	Activity        string    `json:"activity"`
	Note            string    `json:"note"`
}

// ValidateOffer checks the field constraints; pure, so the matrix is unit
// tested without a store.
func ValidateOffer(in *CreateOfferInput, now time.Time) error {
	if strings.TrimSpace(in.Destination) == "" {
		return apperrors.Validation("destination required")
	}
	if strings.TrimSpace(in.City) == "" {
		return apperrors.Validation("city required")
	}
	if in.Date.Before(now) {
		return apperrors.Validation("date must be in the future")
	}
	if !validClock(in.WindowStart) || !validClock(in.WindowEnd) {
		return apperrors.Validation("time window must be HH:MM")
	}
	if in.WindowEnd <= in.WindowStart {
		return apperrors.Validation("time window end must be after start")
	}
	switch in.PreferredGender {
	case domain.GenderMale, domain.GenderFemale, domain.GenderAny:
	default:
		return apperrors.Validation("preferred gender must be M, F or ANY")
	}
	if in.AgeMin < domain.MinAge || in.AgeMax > domain.MaxAge || in.AgeMin > in.AgeMax {
		return apperrors.Validation("age range must be within 18..100 and min <= max")
	}
	if !domain.ValidActivity(in.Activity) {
		return apperrors.Validation("unknown activity")
	}
	if len(in.Note) > domain.MaxNoteLen {
		return apperrors.Validation("note too long")
	}
	return nil
}

// validClock accepts zero-padded 24h HH:MM, which also makes the string
// ordering above a valid time ordering.
func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	return hh < 24 && mm < 60
}

// Create validates, spends the weekly slot and inserts the offer in one
// transaction: a failed insert rolls the consumed slot back.
func (s *BookingService) Create(initiatorID uint, in *CreateOfferInput) (*models.RandomBooking, error) {
	now := time.Now()
	if err := ValidateOffer(in, now); err != nil {
		return nil, err
	}
	initiator, err := s.users.GetByID(initiatorID)
	if err != nil {
		return nil, apperrors.Internal("user lookup failed", err)
	}
	if initiator == nil {
		return nil, apperrors.New(apperrors.CodeProfileMissing, "profile not found")
	}
	if !initiator.IsActive() {
		return nil, apperrors.New(apperrors.CodeForbidden, "account not active")
	}

	offer := &models.RandomBooking{
		InitiatorID:     initiatorID,
		Destination:     strings.TrimSpace(in.Destination),
		City:            foldPlace(in.City),
		Area:            foldPlace(in.Area),
		Date:            in.Date,
		WindowStart:     in.WindowStart,
		WindowEnd:       in.WindowEnd,
		PreferredGender: in.PreferredGender,
		AgeMin:          in.AgeMin,
		AgeMax:          in.AgeMax,
		Activity:        in.Activity,
		Note:            strings.TrimSpace(in.Note),
		Status:          domain.OfferPending,
		ExpiresAt:       now.Add(domain.OfferTTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.quota.WithTx(repository.NewUsageRepository(tx)).Consume(initiatorID, now); err != nil {
			return err
		}
		return s.bookings.WithTx(tx).Create(offer)
	})
	if err != nil {
		if apperrors.Is(err, apperrors.CodeQuotaExceeded) {
			return nil, err
		}
		return nil, apperrors.Internal("offer create failed", err)
	}
	metrics.OffersCreated.Inc()
	return offer, nil
}

func foldPlace(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EligibleOffer is a discovery row with the optional distance annotation.
type EligibleOffer struct {
	Offer      models.RandomBooking `json:"offer"`
	DistanceKm *float64             `json:"distance_km,omitempty"`
}

// Eligible lists open offers the caller can accept, filtered by the
// initiator's stated preferences and proximity.
func (s *BookingService) Eligible(callerID uint, limit int) ([]EligibleOffer, error) {
	caller, err := s.users.GetByID(callerID)
	if err != nil {
		return nil, apperrors.Internal("user lookup failed", err)
	}
	if caller == nil || caller.City == "" {
		return nil, apperrors.New(apperrors.CodeProfileMissing, "complete your profile to discover offers")
	}
	now := time.Now()
	open, err := s.bookings.ListOpenByCity(foldPlace(caller.City), callerID, now, limit*4)
	if err != nil {
		return nil, apperrors.Internal("offer discovery failed", err)
	}
	out := make([]EligibleOffer, 0, len(open))
	for i := range open {
		offer := open[i]
		if err := OfferEligibleFor(&offer, &offer.Initiator, caller, now, s.geoRadiusKm); err != nil {
			continue
		}
		row := EligibleOffer{Offer: offer}
		if caller.HasLocation() && offer.Initiator.HasLocation() {
			d := location.HaversineKm(*caller.Lat, *caller.Lng, *offer.Initiator.Lat, *offer.Initiator.Lng)
			row.DistanceKm = &d
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// OfferEligibleFor is the advisory eligibility filter: the accept CAS is
// authoritative, this only avoids wasted attempts and bad listings.
func OfferEligibleFor(offer *models.RandomBooking, initiator, caller *models.User, now time.Time, radiusKm float64) error {
	if caller.ID == offer.InitiatorID {
		return apperrors.Validation("cannot accept own offer")
	}
	if offer.Status != domain.OfferPending {
		return apperrors.WrongState("offer not open")
	}
	if offer.ExpiresAt.Before(now) || offer.Date.Before(now) {
		return apperrors.WrongState("offer expired")
	}
	if !caller.IsActive() {
		return apperrors.New(apperrors.CodeForbidden, "account not active")
	}
	if offer.PreferredGender != domain.GenderAny && caller.Gender != offer.PreferredGender {
		return apperrors.New(apperrors.CodePreferenceMismatch, "gender preference mismatch")
	}
	age := caller.Age(now)
	if age < offer.AgeMin || age > offer.AgeMax {
		return apperrors.New(apperrors.CodePreferenceMismatch, "outside requested age range")
	}
	if foldPlace(caller.City) != offer.City {
		return apperrors.New(apperrors.CodePreferenceMismatch, "different city")
	}
	if offer.Area != "" && foldPlace(caller.Area) != "" && foldPlace(caller.Area) != offer.Area {
		return apperrors.New(apperrors.CodePreferenceMismatch, "different area")
	}
	if caller.HasLocation() && initiator != nil && initiator.HasLocation() {
		if !location.WithinKm(*caller.Lat, *caller.Lng, *initiator.Lat, *initiator.Lng, radiusKm) {
			return apperrors.New(apperrors.CodePreferenceMismatch, "too far away")
		}
	}
	return nil
}

// Accept runs the first-come-first-served race. The eligibility preflight
// is advisory; the conditional update on {PENDING, unexpired} is the only
// winner-selection mechanism. Losers get ALREADY_TAKEN.
func (s *BookingService) Accept(offerID, acceptorID uint) (*models.RandomBooking, *models.Chat, error) {
	offer, err := s.bookings.GetByID(offerID)
	if err != nil {
		return nil, nil, apperrors.Internal("offer lookup failed", err)
	}
	if offer == nil {
		return nil, nil, apperrors.NotFound("offer not found")
	}
	acceptor, err := s.users.GetByID(acceptorID)
	if err != nil {
		return nil, nil, apperrors.Internal("user lookup failed", err)
	}
	if acceptor == nil {
		return nil, nil, apperrors.New(apperrors.CodeProfileMissing, "profile not found")
	}
	now := time.Now()
	initiator, err := s.users.GetByID(offer.InitiatorID)
	if err != nil {
		return nil, nil, apperrors.Internal("user lookup failed", err)
	}
	if err := OfferEligibleFor(offer, initiator, acceptor, now, s.geoRadiusKm); err != nil {
		return nil, nil, err
	}

	won, err := s.bookings.AcceptCAS(offerID, acceptorID, now)
	if err != nil {
		return nil, nil, apperrors.Internal("accept failed", err)
	}
	if !won {
		metrics.AcceptRacesLost.Inc()
		return nil, nil, apperrors.New(apperrors.CodeAlreadyTaken, "offer already taken")
	}
	metrics.MatchesWon.Inc()

	offer.Status = domain.OfferMatched
	offer.AcceptorID = &acceptorID
	offer.MatchedAt = &now

	// Duplicate key on booking_id is idempotent success by design.
	if err := s.bookings.CreateMatchRecord(&models.MatchRecord{
		BookingID:   offer.ID,
		InitiatorID: offer.InitiatorID,
		AcceptorID:  acceptorID,
		MatchedAt:   now,
	}); err != nil {
		return nil, nil, apperrors.Internal("match record failed", err)
	}

	chat, err := s.chats.CreateForBooking(offer)
	if err != nil {
		return nil, nil, err
	}
	if err := s.bookings.SetChatID(offer.ID, chat.ID); err != nil {
		return nil, nil, apperrors.Internal("chat wiring failed", err)
	}
	offer.ChatID = &chat.ID
	return offer, chat, nil
}

// Cancel is initiator-only and PENDING-only; it records the cancellation
// counter but never refunds the weekly slot.
func (s *BookingService) Cancel(offerID, userID uint, reason string) (*models.RandomBooking, error) {
	offer, err := s.bookings.GetByID(offerID)
	if err != nil {
		return nil, apperrors.Internal("offer lookup failed", err)
	}
	if offer == nil {
		return nil, apperrors.NotFound("offer not found")
	}
	if offer.InitiatorID != userID {
		return nil, apperrors.New(apperrors.CodeNotInitiator, "only the initiator can cancel")
	}
	now := time.Now()
	ok, err := s.bookings.CancelCAS(offerID, userID, strings.TrimSpace(reason), now)
	if err != nil {
		return nil, apperrors.Internal("cancel failed", err)
	}
	if !ok {
		return nil, apperrors.WrongState("offer is not pending")
	}
	// Analytics only; the cancel already happened.
	if err := s.quota.RecordCancellation(userID, now); err != nil {
		slog.Warn("cancel counter failed", "user_id", userID, "err", err)
	}
	return s.bookings.GetByID(offerID)
}

// Complete stamps the completed-meetup annotation (status stays MATCHED)
// and pulls the chat horizon in to end-of-day.
func (s *BookingService) Complete(offerID, userID uint) (*models.RandomBooking, error) {
	offer, err := s.bookings.GetByID(offerID)
	if err != nil {
		return nil, apperrors.Internal("offer lookup failed", err)
	}
	if offer == nil {
		return nil, apperrors.NotFound("offer not found")
	}
	if userID != offer.InitiatorID && (offer.AcceptorID == nil || userID != *offer.AcceptorID) {
		return nil, apperrors.New(apperrors.CodeNotParticipant, "only a participant can complete")
	}
	now := time.Now()
	ok, err := s.bookings.CompleteCAS(offerID, userID, now)
	if err != nil {
		return nil, apperrors.Internal("complete failed", err)
	}
	if !ok {
		return nil, apperrors.WrongState("offer is not matched or already completed")
	}
	if offer.ChatID != nil {
		if err := s.chats.MarkCompleted(*offer.ChatID, now); err != nil {
			return nil, err
		}
	}
	return s.bookings.GetByID(offerID)
}

func (s *BookingService) Get(offerID uint) (*models.RandomBooking, error) {
	return s.bookings.GetByID(offerID)
}

func (s *BookingService) ListMine(userID uint, limit, offset int) ([]models.RandomBooking, error) {
	return s.bookings.ListByInitiator(userID, limit, offset)
}
