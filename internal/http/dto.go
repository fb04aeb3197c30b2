package http

import (
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
	"expenses/internal/services"
)

// expenseRequest is the write payload shared by create and update. References
// are supplied by name; the full product set replaces whatever existed before.
type expenseRequest struct {
	Date        time.Time      `json:"date"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Issuer      string         `json:"issuer,omitempty"`
	Currency    string         `json:"currency"`
	Products    []productInput `json:"products"`
}

type productInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (req expenseRequest) toServiceRequest() services.ExpenseRequest {
	products := make([]services.ProductInput, len(req.Products))
	for i, p := range req.Products {
		products[i] = services.ProductInput{
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
		}
	}
	return services.ExpenseRequest{
		Date:        req.Date,
		Description: req.Description,
		Category:    req.Category,
		Issuer:      req.Issuer,
		Currency:    req.Currency,
		Products:    products,
	}
}

type refResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type productResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type expenseResponse struct {
	ID          int64             `json:"id"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Category    refResponse       `json:"category"`
	Issuer      *refResponse      `json:"issuer,omitempty"`
	Currency    refResponse       `json:"currency"`
	Products    []productResponse `json:"products"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type pageResponse struct {
	Items      []expenseResponse `json:"items"`
	TotalCount int               `json:"totalCount"`
	PageNumber int               `json:"pageNumber"`
	PageSize   int               `json:"pageSize"`
	HasMore    bool              `json:"hasMore"`
}

type groupResponse struct {
	Name     string            `json:"name"`
	Total    decimal.Decimal   `json:"total"`
	Expenses []expenseResponse `json:"expenses"`
}

type groupedPageResponse struct {
	Groups     []groupResponse `json:"groups"`
	TotalCount int             `json:"totalCount"`
	PageNumber int             `json:"pageNumber"`
	PageSize   int             `json:"pageSize"`
	HasMore    bool            `json:"hasMore"`
}

func toGroupResponses(groups []core.Group) []groupResponse {
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = groupResponse{
			Name:     g.Name,
			Total:    g.Total,
			Expenses: toExpenseResponses(g.Expenses),
		}
	}
	return out
}

func toExpenseResponse(e core.Expense) expenseResponse {
	products := make([]productResponse, len(e.Products))
	for i, p := range e.Products {
		products[i] = productResponse{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: p.Quantity,
		}
	}
	resp := expenseResponse{
		ID:          e.ID,
		Date:        e.Date,
		Description: e.Description,
		Category:    refResponse{ID: e.Category.ID, Name: e.Category.Name},
		Currency:    refResponse{ID: e.Currency.ID, Name: e.Currency.Name},
		Products:    products,
		TotalAmount: e.TotalAmount,
		CreatedAt:   e.CreatedAt,
	}
	if e.Issuer != nil {
		resp.Issuer = &refResponse{ID: e.Issuer.ID, Name: e.Issuer.Name}
	}
	return resp
}

func toExpenseResponses(items []core.Expense) []expenseResponse {
	out := make([]expenseResponse, len(items))
	for i, e := range items {
		out[i] = toExpenseResponse(e)
	}
	return out
}

func toRefResponses(refs []core.Ref) []refResponse {
	out := make([]refResponse, len(refs))
	for i, r := range refs {
		out[i] = refResponse{ID: r.ID, Name: r.Name}
	}
	return out
}
