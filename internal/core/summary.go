package core

import "github.com/shopspring/decimal"

// Group is a slice of one page's expenses that share a category or currency
// name, with the sum of their totals. Grouping is a presentation concern: it
// operates on an already-fetched page and never looks past it.
type Group struct {
	Name     string
	Total    decimal.Decimal
	Expenses []Expense
}

// GroupByCategory buckets a page of expenses by category name, preserving the
// order in which each name first appears.
func GroupByCategory(expenses []Expense) []Group {
	return groupBy(expenses, func(e Expense) string { return e.Category.Name })
}

// GroupByCurrency buckets a page of expenses by currency name, preserving the
// order in which each name first appears.
func GroupByCurrency(expenses []Expense) []Group {
	return groupBy(expenses, func(e Expense) string { return e.Currency.Name })
}

func groupBy(expenses []Expense, key func(Expense) string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, e := range expenses {
		name := key(e)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(e.TotalAmount)
		groups[i].Expenses = append(groups[i].Expenses, e)
	}
	return groups
}
