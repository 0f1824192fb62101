package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/vaidashi/storefront-api/internal/service"
)

const maxJSONBody = 1 << 20

// flexibleInt accepts both 3 and "3", since checkout forms post numbers as strings
type flexibleInt int64

func (f *flexibleInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errors.New("must be an integer")
	}

	*f = flexibleInt(n)
	return nil
}

type createOrderRequest struct {
	ProductID     flexibleInt `json:"product_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	PhoneNumber   string      `json:"phone_number"`
	State         string      `json:"state"`
	District      string      `json:"district"`
	Quantity      flexibleInt `json:"quantity"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
	// total_price may be sent by clients; it is recomputed server side
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
}

// getOrdersHandler returns every order
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := s.services.Orders.ListOrders(r.Context())
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, orders)
}

// createOrderHandler places a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	order, err := s.services.Orders.CreateOrder(r.Context(), service.CreateOrderInput{
		ProductID:     int64(req.ProductID),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		State:         req.State,
		District:      req.District,
		PaymentMethod: req.PaymentMethod,
		Quantity:      int(req.Quantity),
		Status:        req.Status,
	})
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusCreated, order)
}

// getOrderByIDHandler returns an order by ID
func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := s.services.Orders.GetOrder(r.Context(), id)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

// updateOrderStatusHandler overwrites an order's status
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	order, err := s.services.Orders.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, order)
}

// deleteOrderHandler deletes an order
func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if err := s.services.Orders.DeleteOrder(r.Context(), id); err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

// getOrderTrackingHandler returns the progress view of an order
func (s *Server) getOrderTrackingHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	tracking, err := s.services.Orders.GetTracking(r.Context(), id)
	if err != nil {
		s.respondWithAppError(w, r, err)
		return
	}

	s.respondWithData(w, http.StatusOK, tracking)
}
