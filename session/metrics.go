package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_commands_total",
		Help: "Handled bot commands by name and outcome.",
	}, []string{"command", "outcome"})

	channelsProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_channels_provisioned_total",
		Help: "Escrow groups successfully provisioned.",
	})

	invoicesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escrow_invoices_created_total",
		Help: "Invoices created on the payment gateway.",
	})

	settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_settlements_total",
		Help: "Terminal invoice outcomes observed via webhook.",
	}, []string{"status"})
)
