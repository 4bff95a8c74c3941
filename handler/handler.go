package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cart-management/model"
	"cart-management/notify"
	"cart-management/service"
)

// GET /cart - current cart of the session
// POST /cart/add - one more unit of a product
// POST /cart/remove - drop a product
// POST /cart/update - set the amount of a product
// GET /cart/subscribe - websocket stream of cart snapshots and error messages

const writeWait = 10 * time.Second

// Handler is the HTTP layer in front of the per-session carts.
type Handler struct {
	sessions *Sessions
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler instance
func NewHandler(sessions *Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		log:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart/add", h.AddProduct).Methods("POST")
	r.HandleFunc("/cart/remove", h.RemoveProduct).Methods("POST")
	r.HandleFunc("/cart/update", h.UpdateProductAmount).Methods("POST")
	r.HandleFunc("/cart/subscribe", h.Subscribe).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
}

// --- request / response shapes ---
type productReq struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount,omitempty"` // update only
}

type cartResponse struct {
	Session  string     `json:"session"`
	Items    model.Cart `json:"items"`
	Size     int        `json:"size"`
	Subtotal float64    `json:"subtotal"`
	Errors   []string   `json:"errors,omitempty"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func newCartResponse(sess *Session) cartResponse {
	items := sess.Cart.Cart()
	return cartResponse{
		Session:  sess.ID,
		Items:    items,
		Size:     items.Size(),
		Subtotal: items.Subtotal(),
	}
}

func decodeProductReq(w http.ResponseWriter, r *http.Request) (productReq, bool) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if req.ProductID <= 0 {
		writeErr(w, http.StatusBadRequest, "product_id is required")
		return req, false
	}
	return req, true
}

// session resolves the caller's session. It writes a 503 and returns false
// when the session's cart could not be loaded.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, _ := sessionID(w, r)
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.log.Error("open session failed", zap.String("session", id), zap.Error(err))
		writeErr(w, http.StatusServiceUnavailable, "cart unavailable")
		return nil, false
	}
	return sess, true
}

// mutate runs op with a collector attached and reports the cart together
// with any messages the operation raised.
func (h *Handler) mutate(ctx context.Context, w http.ResponseWriter, sess *Session, op func(ctx context.Context)) {
	ctx, collected := notify.WithCollector(ctx)
	op(ctx)

	resp := newCartResponse(sess)
	resp.Errors = collected.Messages()
	code := http.StatusOK
	if len(resp.Errors) > 0 {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, resp)
}

// --- Handler ---

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, fresh := sessionID(w, r)
	if fresh {
		// nothing can be stored under an ID issued just now
		writeJSON(w, http.StatusOK, cartResponse{Session: id, Items: model.Cart{}})
		return
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.log.Error("open session failed", zap.String("session", id), zap.Error(err))
		writeErr(w, http.StatusServiceUnavailable, "cart unavailable")
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sess))
}

// AddProduct handles POST /cart/add
// body: { "product_id": 1 }
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProductReq(w, r)
	if !ok {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mutate(r.Context(), w, sess, func(ctx context.Context) {
		sess.Cart.AddProduct(ctx, req.ProductID)
	})
}

// RemoveProduct handles POST /cart/remove
// body: { "product_id": 1 }
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProductReq(w, r)
	if !ok {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mutate(r.Context(), w, sess, func(ctx context.Context) {
		sess.Cart.RemoveProduct(ctx, req.ProductID)
	})
}

// UpdateProductAmount handles POST /cart/update
// body: { "product_id": 1, "amount": 3 }
func (h *Handler) UpdateProductAmount(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeProductReq(w, r)
	if !ok {
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.mutate(r.Context(), w, sess, func(ctx context.Context) {
		sess.Cart.UpdateProductAmount(ctx, service.UpdateProductAmount{ProductID: req.ProductID, Amount: req.Amount})
	})
}

// Subscribe handles GET /cart/subscribe. The first event is the current cart.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	// the session headers must travel with the upgrade response
	conn, err := h.upgrader.Upgrade(w, r, w.Header().Clone())
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("session", sess.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := sess.Hub.Subscribe()
	defer unsubscribe()

	// the client never sends anything; reading only detects the close
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				unsubscribe()
				return
			}
		}
	}()

	items := sess.Cart.Cart()
	if err := h.send(conn, notify.Event{Type: notify.EventCart, Items: &items}); err != nil {
		return
	}
	for e := range events {
		if err := h.send(conn, e); err != nil {
			h.log.Debug("websocket closed", zap.String("session", sess.ID), zap.Error(err))
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, e notify.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}
