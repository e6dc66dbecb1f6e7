package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// canonicalNames maps the domain-specific aliases found in the raw feature
// table to the canonical schema used by the rest of the pipeline.
var canonicalNames = map[string]string{
	"flag":                      "fraud_label",
	"FLAG":                      "fraud_label",
	"balance":                   "account_balance",
	"total_sent_value":          "total_sent",
	"total_received_value":      "total_received",
	"avg_sent_value":            "avg_transaction_sent",
	"avg_received_value":        "avg_transaction_received",
	"max_sent_value":            "max_transaction_sent",
	"max_received_value":        "max_transaction_received",
	"min_sent_value":            "min_transaction_sent",
	"min_received_value":        "min_transaction_received",
	"txn_out_cnt":               "transaction_frequency_sent",
	"txn_in_cnt":                "transaction_frequency_received",
	"unique_out_contacts":       "unique_contacts_sent",
	"unique_in_contacts":        "unique_contacts_received",
	"contract_creation_flag":    "contract_creation",
	"contract_interaction_flag": "contract_interaction",
}

// Loader parses and canonicalizes the transfer ledger and the address-feature
// table into a single address-keyed frame.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a Loader with the provided logger.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// Load reads both CSV tables, derives per-address transaction counts from the
// ledger, renames aliased columns to the canonical schema, and left-merges
// the counts into the feature table. Numeric gaps are filled with zero; the
// label column is never filled.
func (l *Loader) Load(transactions, features io.Reader) (*Frame, error) {
	feats, err := ReadCSV(features)
	if err != nil {
		return nil, fmt.Errorf("dataset: features table: %w", err)
	}
	if !feats.Has("address") {
		return nil, fmt.Errorf("dataset: features table: %q: %w", "address", domain.ErrMissingColumn)
	}
	if !feats.Has("flag") && !feats.Has("FLAG") {
		return nil, fmt.Errorf("dataset: features table: %q (or %q): %w", "flag", "FLAG", domain.ErrMissingColumn)
	}

	tx, err := ReadCSV(transactions)
	if err != nil {
		return nil, fmt.Errorf("dataset: transactions table: %w", err)
	}

	for from, to := range canonicalNames {
		feats.Rename(from, to)
	}

	l.normalizeAddresses(feats)

	counts := transactionCounts(tx)
	if counts != nil {
		mergeTransactionCounts(feats, counts)
	} else {
		fallbackTransactionCounts(feats)
	}

	feats.FillNaN(0, "fraud_label")

	l.logger.Info("tables loaded",
		slog.Int("addresses", feats.Len()),
		slog.Int("ledger_edges", tx.Len()),
		slog.Bool("counts_from_ledger", counts != nil),
	)
	return feats, nil
}

// normalizeAddresses lowercases the address column and logs how many entries
// are not well-formed hex addresses. Malformed addresses are kept; they still
// carry a labeled feature row.
func (l *Loader) normalizeAddresses(f *Frame) {
	addrs, ok := f.Text("address")
	if !ok {
		return
	}
	malformed := 0
	for i, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		addrs[i] = a
		if !common.IsHexAddress(a) {
			malformed++
		}
	}
	if malformed > 0 {
		l.logger.Warn("feature table contains malformed addresses",
			slog.Int("count", malformed),
		)
	}
}

// transactionCounts derives per-address counts from the ledger: outbound-edge
// count plus inbound-edge count, outer-merged with missing counts as zero. It
// returns nil when the ledger lacks identifiable source/destination columns.
func transactionCounts(tx *Frame) map[string]float64 {
	from, okFrom := tx.Text("from_address")
	to, okTo := tx.Text("to_address")
	if !okFrom || !okTo {
		return nil
	}
	counts := make(map[string]float64)
	for _, a := range from {
		counts[strings.ToLower(strings.TrimSpace(a))]++
	}
	for _, a := range to {
		counts[strings.ToLower(strings.TrimSpace(a))]++
	}
	return counts
}

// mergeTransactionCounts left-merges the derived counts into the feature
// table by address. Addresses absent from the ledger get zero.
func mergeTransactionCounts(f *Frame, counts map[string]float64) {
	addrs, ok := f.Text("address")
	if !ok {
		return
	}
	col := make([]float64, f.Len())
	for i, a := range addrs {
		col[i] = counts[a]
	}
	f.SetNumeric("transaction_count", col)
}

// fallbackTransactionCounts derives transaction_count from existing frequency
// columns when the ledger has no usable edges, defaulting to zero.
func fallbackTransactionCounts(f *Frame) {
	sent, okS := f.Numeric("transaction_frequency_sent")
	recv, okR := f.Numeric("transaction_frequency_received")
	col := make([]float64, f.Len())
	if okS && okR {
		for i := range col {
			col[i] = nanToZero(sent[i]) + nanToZero(recv[i])
		}
	}
	f.SetNumeric("transaction_count", col)
}

func nanToZero(v float64) float64 {
	if v != v {
		return 0
	}
	return v
}
