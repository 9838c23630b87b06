package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walletsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_sync_resolved_total",
			Help: "Wallet connections resolved, by outcome",
		},
		[]string{"status"},
	)

	walletsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_sync_skipped_total",
			Help: "Wallet connections skipped, by reason",
		},
		[]string{"reason"},
	)

	holdingsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_sync_holdings_written_total",
			Help: "Token holdings persisted",
		},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_sync_rpc_errors_total",
			Help: "Chain RPC failures, by chain",
		},
		[]string{"chain"},
	)

	staleWalletsRefreshed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_refresher_wallets_total",
			Help: "Stale wallets refreshed by the background syncer",
		},
	)

	refreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_refresher_errors_total",
			Help: "Background refresh failures",
		},
	)
)
