package dataset

import "math"

// eps avoids division artifacts in engineered ratios. It is not an error
// suppression mechanism: denominators are shifted, never checked.
const eps = 1e-12

// Engineer derives the engineered numeric columns from canonical columns and
// adds them to the frame in place. A missing source column contributes zeros
// to every formula.
func Engineer(f *Frame) {
	n := f.Len()

	totalSent := f.NumericColumn("total_sent")
	totalReceived := f.NumericColumn("total_received")
	avgSent := f.NumericColumn("avg_transaction_sent")
	avgReceived := f.NumericColumn("avg_transaction_received")
	freqSent := f.NumericColumn("transaction_frequency_sent")
	freqReceived := f.NumericColumn("transaction_frequency_received")
	contractCreation := f.NumericColumn("contract_creation")
	contractInteraction := f.NumericColumn("contract_interaction")
	balance := f.NumericColumn("account_balance")
	txnCount := f.NumericColumn("transaction_count")
	maxSent := f.NumericColumn("max_transaction_sent")
	minSent := f.NumericColumn("min_transaction_sent")
	maxReceived := f.NumericColumn("max_transaction_received")
	minReceived := f.NumericColumn("min_transaction_received")

	sentToReceived := make([]float64, n)
	avgRatio := make([]float64, n)
	totalFreq := make([]float64, n)
	contractRatio := make([]float64, n)
	netFlow := make([]float64, n)
	spreadSent := make([]float64, n)
	spreadReceived := make([]float64, n)
	contractActivity := make([]float64, n)
	logBalance := make([]float64, n)
	logTxnCount := make([]float64, n)

	for i := 0; i < n; i++ {
		sentToReceived[i] = totalSent[i] / (totalReceived[i] + eps)
		avgRatio[i] = avgSent[i] / (avgReceived[i] + eps)
		totalFreq[i] = freqSent[i] + freqReceived[i]
		contractActions := contractCreation[i] + contractInteraction[i]
		contractRatio[i] = contractActions / (totalFreq[i] + txnCount[i] + eps)
		netFlow[i] = totalReceived[i] - totalSent[i]
		spreadSent[i] = maxSent[i] - minSent[i]
		spreadReceived[i] = maxReceived[i] - minReceived[i]
		if contractCreation[i] > 0 || contractInteraction[i] > 0 {
			contractActivity[i] = 1
		}
		logBalance[i] = math.Log1p(balance[i])
		logTxnCount[i] = math.Log1p(txnCount[i])
	}

	f.SetNumeric("sent_to_received_ratio", sentToReceived)
	f.SetNumeric("avg_sent_to_avg_received", avgRatio)
	f.SetNumeric("interaction_with_contract_ratio", contractRatio)
	// Without a balance column the zero stand-in would put every row at the
	// 95th percentile; emit an all-zero flag instead.
	highBalance := make([]float64, n)
	if _, hasBalance := f.Numeric("account_balance"); hasBalance {
		highBalance = thresholdFlag(balance, Quantile(balance, 0.95))
	}
	f.SetNumeric("is_high_balance", highBalance)
	f.SetNumeric("high_txn_freq_flag", highFreqFlag(totalFreq))
	f.SetNumeric("net_flow", netFlow)
	f.SetNumeric("spread_sent", spreadSent)
	f.SetNumeric("spread_received", spreadReceived)
	f.SetNumeric("contract_activity_flag", contractActivity)
	f.SetNumeric("log_balance", logBalance)
	f.SetNumeric("log_txn_count", logTxnCount)
}

// thresholdFlag returns 1 where v >= threshold, else 0. A NaN threshold
// (empty column) flags nothing.
func thresholdFlag(vals []float64, threshold float64) []float64 {
	out := make([]float64, len(vals))
	if math.IsNaN(threshold) {
		return out
	}
	for i, v := range vals {
		if v >= threshold {
			out[i] = 1
		}
	}
	return out
}

// highFreqFlag flags rows whose combined transaction frequency reaches the
// 75th percentile of the nonzero frequency distribution. When every row is
// zero the threshold degenerates to zero and all rows are flagged.
func highFreqFlag(totalFreq []float64) []float64 {
	nonzero := make([]float64, 0, len(totalFreq))
	for _, v := range totalFreq {
		if v != 0 {
			nonzero = append(nonzero, v)
		}
	}
	q75 := 0.0
	if len(nonzero) > 0 {
		q75 = Quantile(nonzero, 0.75)
	}
	out := make([]float64, len(totalFreq))
	for i, v := range totalFreq {
		if v >= q75 {
			out[i] = 1
		}
	}
	return out
}
