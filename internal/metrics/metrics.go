// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OffersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_offers_created_total",
		Help: "Random booking offers created.",
	})
	MatchesWon = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_matches_total",
		Help: "Offers matched (accept races won).",
	})
	AcceptRacesLost = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_accept_races_lost_total",
		Help: "Accept attempts that lost the first-come-first-served race.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_chat_messages_total",
		Help: "Chat messages persisted.",
	})
	ChatsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_chats_deleted_total",
		Help: "Ephemeral chats erased by the delete cascade.",
	})
	ReportsFiled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_safety_reports_total",
		Help: "Safety reports filed against chats.",
	})
	CallsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_calls_initiated_total",
		Help: "Voice calls initiated.",
	})
	CallsHealed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "humrah_calls_stale_healed_total",
		Help: "Stale calls force-ended by self-healing.",
	})
	SweepActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "humrah_janitor_actions_total",
		Help: "Rows acted on by janitor sweeps.",
	}, []string{"sweep"})
	ConnectedSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "humrah_realtime_sockets",
		Help: "Open realtime gateway connections.",
	})
)
