package domain

import "time"

// Offer (random booking) statuses.
const (
	OfferPending   = "PENDING"
	OfferMatched   = "MATCHED"
	OfferExpired   = "EXPIRED"
	OfferCancelled = "CANCELLED"
)

// Chat statuses.
const (
	ChatActive      = "ACTIVE"
	ChatCompleted   = "COMPLETED"
	ChatExpired     = "EXPIRED"
	ChatUnderReview = "UNDER_REVIEW"
)

// Message delivery states, ordered SENT < DELIVERED < READ.
const (
	DeliverySent      = "SENT"
	DeliveryDelivered = "DELIVERED"
	DeliveryRead      = "READ"
)

// DeliveryRank maps a delivery state to its position in the monotone
// SENT→DELIVERED→READ chain. Unknown states rank -1.
func DeliveryRank(state string) int {
	switch state {
	case DeliverySent:
		return 0
	case DeliveryDelivered:
		return 1
	case DeliveryRead:
		return 2
	}
	return -1
}

// Message kinds and sender roles.
const (
	MessageText  = "TEXT"
	MessageImage = "IMAGE"
	MessageFile  = "FILE"

	SenderUser  = "USER"
	SenderAdmin = "ADMIN"
)

// Activity types an offer can propose.
const (
	ActivityWalk    = "WALK"
	ActivityFood    = "FOOD"
	ActivityExplore = "EXPLORE"
	ActivityEvent   = "EVENT"
	ActivityCasual  = "CASUAL"
)

// ValidActivity reports whether s is a known activity type.
func ValidActivity(s string) bool {
	switch s {
	case ActivityWalk, ActivityFood, ActivityExplore, ActivityEvent, ActivityCasual:
		return true
	}
	return false
}

// Gender preference on an offer.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderAny    = "ANY"
)

// Participant roles in a chat.
const (
	RoleInitiator = "INITIATOR"
	RoleAccepter  = "ACCEPTER"
)

// User account statuses (consumed from the user store).
const (
	UserActive    = "ACTIVE"
	UserSuspended = "SUSPENDED"
	UserBanned    = "BANNED"
)

// Encryption key purposes and acl levels.
const (
	KeyPurposeRandomBooking = "RANDOM_BOOKING"
	KeyPurposeSupportChat   = "SUPPORT_CHAT"

	AccessRead  = "READ"
	AccessWrite = "WRITE"
	AccessAdmin = "ADMIN"
)

// AccessRank orders acl levels READ < WRITE < ADMIN. Unknown levels rank -1.
func AccessRank(level string) int {
	switch level {
	case AccessRead:
		return 0
	case AccessWrite:
		return 1
	case AccessAdmin:
		return 2
	}
	return -1
}

// Voice call statuses.
const (
	CallRinging    = "RINGING"
	CallConnecting = "CONNECTING"
	CallConnected  = "CONNECTED"
	CallDeclined   = "DECLINED"
	CallTimeout    = "TIMEOUT"
	CallEnded      = "ENDED"
	CallFailed     = "FAILED"
	CallExpired    = "EXPIRED"
)

// CallActive reports whether a call status is non-terminal.
func CallActive(status string) bool {
	switch status {
	case CallRinging, CallConnecting, CallConnected:
		return true
	}
	return false
}

// CallActiveStatuses is the non-terminal set, for queries.
var CallActiveStatuses = []string{CallRinging, CallConnecting, CallConnected}

// callTransitions is the voice-call state machine. A missing entry means
// the transition is rejected.
var callTransitions = map[string][]string{
	CallRinging:    {CallConnecting, CallDeclined, CallTimeout, CallEnded, CallExpired},
	CallConnecting: {CallConnected, CallFailed, CallEnded, CallExpired},
	CallConnected:  {CallEnded, CallExpired},
}

// CallCanTransition reports whether from→to is a legal call transition.
func CallCanTransition(from, to string) bool {
	for _, next := range callTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Call end reasons.
const (
	EndReasonUserHangup  = "user_hangup"
	EndReasonNoAnswer    = "no_answer"
	EndReasonAutoTimeout = "auto_timeout"
	EndReasonMaxDuration = "max_duration_exceeded"
)

// Safety report categories and statuses.
const (
	ReportHarassment    = "HARASSMENT"
	ReportSpam          = "SPAM"
	ReportInappropriate = "INAPPROPRIATE"
	ReportSafety        = "SAFETY_CONCERN"
	ReportOther         = "OTHER"

	ReportPending  = "PENDING"
	ReportReviewed = "REVIEWED"
	ReportResolved = "RESOLVED"
)

// Offer field bounds and caps.
const (
	MinAge            = 18
	MaxAge            = 100
	MaxNoteLen        = 500
	MaxMessageLen     = 5000
	WeeklyOfferCap    = 1
	DefaultGeoKm      = 50.0
	UsageKeepWeeks    = 4  // WeeklyUsage rows older than this are purged
	CallRetentionDays = 30 // terminal call rows kept this long
)

// Lifecycle horizons.
const (
	OfferTTL        = 24 * time.Hour // unmatched offer expiry past creation
	ChatTTL         = 24 * time.Hour // chat/key expiry past meetup date
	RingTimeout     = 30 * time.Second
	MaxCallDuration = 2 * time.Hour
	StaleCallAfter  = 2 * time.Minute
	RTCTokenTTL     = 30 * time.Minute
)

// ReviewSentinel is the far-future expiry applied to chats frozen by a
// safety report. Comparisons against real clocks never pass it.
var ReviewSentinel = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
