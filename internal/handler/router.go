package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/quotedesk-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса quotedesk.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", h.ListCustomers)
				r.Post("/", h.CreateCustomer)

				r.Route("/{customerID}", func(r chi.Router) {
					r.Get("/", h.GetCustomer)
					r.Put("/", h.UpdateCustomer)
					r.Delete("/", h.DeleteCustomer)

					r.Get("/quotes", h.ListQuotes)
					r.Post("/quotes", h.CreateQuote)
					r.Get("/quotes/{quoteID}", h.GetQuote)
					r.Put("/quotes/{quoteID}", h.UpdateQuote)
					r.Delete("/quotes/{quoteID}", h.DeleteQuote)
				})
			})

			r.Route("/packages", func(r chi.Router) {
				r.Get("/", h.ListPackages)
				r.Post("/", h.CreatePackage)
				r.Get("/{packageID}", h.GetPackage)
				r.Put("/{packageID}", h.UpdatePackage)
				r.Delete("/{packageID}", h.DeletePackage)
			})

			r.Route("/quotes/{quoteID}", func(r chi.Router) {
				r.Post("/accept", h.AcceptQuote)
				r.Post("/reject", h.RejectQuote)
				r.Post("/request-amend", h.RequestAmendment)
			})

			r.Post("/orders/from-quote/{quoteID}", h.CreateOrderFromQuote)

			r.Route("/orders/{orderID}", func(r chi.Router) {
				r.Get("/", h.GetOrder)
				r.Put("/", h.UpdateOrder)

				r.Post("/tasks", h.PostTask)
				r.Post("/diary", h.PostDiaryEntry)
				r.Get("/diary", h.GetDiary)

				r.Post("/invoice/{kind}", h.SendInvoice)
				r.Get("/invoice/{kind}", h.PreviewInvoice)

				r.Get("/payments", h.GetPaymentSummary)
				r.Post("/payments", h.RecordPayment)

				r.Post("/checkout", h.CreateCheckoutSession)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
