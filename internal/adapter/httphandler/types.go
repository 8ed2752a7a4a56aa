package httphandler

import (
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/domain"
	"github.com/nicolasbarcena/KazaroPedidos/internal/core/service"
)

type (
	OpenSessionRequest struct {
		ServiceID  string `json:"service_id"`
		Supervisor string `json:"supervisor"`
	}

	SessionResponse struct {
		SessionID       string   `json:"session_id"`
		Service         string   `json:"service,omitempty"`
		Supervisor      string   `json:"supervisor,omitempty"`
		Mode            string   `json:"mode"`
		VisibleProducts int      `json:"visible_products"`
		Warnings        []string `json:"warnings,omitempty"`
	}

	Product struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       string `json:"price"`
		Stock       int    `json:"stock"`
	}

	CatalogPageResponse struct {
		Items       []Product `json:"items"`
		HasPrevious bool      `json:"has_previous"`
		HasNext     bool      `json:"has_next"`
	}

	AddItemRequest struct {
		Code string `json:"code"`
	}

	SetQuantityRequest struct {
		Quantity int `json:"quantity"`
	}

	CartItem struct {
		Code        string `json:"code"`
		Description string `json:"description"`
		UnitPrice   string `json:"unit_price"`
		Quantity    int    `json:"quantity"`
		Subtotal    string `json:"subtotal"`
	}

	CartResponse struct {
		Items   []CartItem `json:"items"`
		Total   string     `json:"total"`
		Warning string     `json:"warning,omitempty"`
	}

	FinalizeRequest struct {
		Customer string `json:"customer"`
	}

	RemitoResponse struct {
		Number    string     `json:"number"`
		Customer  string     `json:"customer"`
		CreatedAt string     `json:"created_at"`
		Items     []CartItem `json:"items"`
		Total     string     `json:"total"`
	}

	ServiceOption struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Supervisor struct {
		Name     string          `json:"name"`
		Services []ServiceOption `json:"services"`
	}

	ErrorResponse struct {
		Error string `json:"error"`
	}
)

func toSessionResponse(v service.SessionView) SessionResponse {
	return SessionResponse{
		SessionID:       v.SessionID,
		Service:         v.Service,
		Supervisor:      v.Supervisor,
		Mode:            string(v.Mode),
		VisibleProducts: v.VisibleProducts,
		Warnings:        v.Warnings,
	}
}

func toCatalogPageResponse(p domain.CatalogPage) CatalogPageResponse {
	res := CatalogPageResponse{
		Items:       make([]Product, len(p.Items)),
		HasPrevious: p.HasPrevious,
		HasNext:     p.HasNext,
	}
	for i, item := range p.Items {
		res.Items[i] = Product{
			Code:        item.Code,
			Description: item.Description,
			Category:    item.Category,
			Price:       item.Price.StringFixed(2),
			Stock:       item.Stock,
		}
	}
	return res
}

func toCartResponse(v service.CartView) CartResponse {
	return CartResponse{
		Items:   toCartItems(v.Items),
		Total:   v.Total.StringFixed(2),
		Warning: v.Warning,
	}
}

func toRemitoResponse(r domain.Remito) RemitoResponse {
	return RemitoResponse{
		Number:    r.Number,
		Customer:  r.Customer,
		CreatedAt: r.CreatedAt.Format("02/01/2006 15:04:05"),
		Items:     toCartItems(r.Items),
		Total:     r.Total.StringFixed(2),
	}
}

func toCartItems(items []domain.CartItem) []CartItem {
	res := make([]CartItem, len(items))
	for i, it := range items {
		res[i] = CartItem{
			Code:        it.Code,
			Description: it.Description,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal.StringFixed(2),
		}
	}
	return res
}

func toSupervisors(vs []service.SupervisorView) []Supervisor {
	res := make([]Supervisor, len(vs))
	for i, v := range vs {
		s := Supervisor{Name: v.Name}
		for _, opt := range v.Services {
			s.Services = append(s.Services, ServiceOption{ID: opt.ID, Name: opt.Name})
		}
		res[i] = s
	}
	return res
}
