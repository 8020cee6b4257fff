package domain

import "sort"

// AccountSummary aggregates the utxos found for an account.
type AccountSummary struct {
	Account uint32
	Balance uint64
	Utxos   []Utxo
	Receive int
	Change  int
}

// SummarizeAccounts groups the given utxos by account, sorted by account
// index.
func SummarizeAccounts(utxos []Utxo) []AccountSummary {
	byAccount := make(map[uint32]*AccountSummary)
	for _, u := range utxos {
		summary, ok := byAccount[u.Account]
		if !ok {
			summary = &AccountSummary{Account: u.Account}
			byAccount[u.Account] = summary
		}
		summary.Balance += u.Satoshis
		summary.Utxos = append(summary.Utxos, u)
		if u.IsChange() {
			summary.Change++
		} else {
			summary.Receive++
		}
	}

	summaries := make([]AccountSummary, 0, len(byAccount))
	for _, s := range byAccount {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Account < summaries[j].Account
	})
	return summaries
}
