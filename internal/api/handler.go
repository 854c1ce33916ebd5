package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tushar743-ui/Mediflow-AI-sub000/domain"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/apperr"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/forecast"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/order"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/safety"
	"github.com/tushar743-ui/Mediflow-AI-sub000/internal/store"
)

type ctxKey string

const ctxConsumerID ctxKey = "consumerID"

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db          *sqlx.DB
	store       *store.Store
	evaluator   *safety.Evaluator
	orders      *order.Service
	forecasts   *forecast.Service
	secret      string
	maxQuantity int64
	log         *zap.Logger
}

// New constructs a Handler.
func New(db *sqlx.DB, st *store.Store, evaluator *safety.Evaluator, orders *order.Service, forecasts *forecast.Service, secret string, maxQuantity int64, log *zap.Logger) *Handler {
	return &Handler{
		db:          db,
		store:       st,
		evaluator:   evaluator,
		orders:      orders,
		forecasts:   forecasts,
		secret:      secret,
		maxQuantity: maxQuantity,
		log:         log,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Get("/medicines", h.searchMedicines)

		pr.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/{id}", h.getOrder)
			r.Post("/{id}/confirm", h.confirmOrder)
			r.Post("/{id}/cancel", h.cancelOrder)
			r.Post("/{id}/fulfill", h.fulfillOrder)
		})

		pr.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.pendingAlerts)
			r.Post("/{id}/sent", h.markAlertSent)
		})

		pr.Post("/forecast/run", h.runForecast)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

// Authentication helpers

type authClaims struct {
	ConsumerID int64 `json:"consumer_id"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(consumerID int64) (string, error) {
	claims := authClaims{
		ConsumerID: consumerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxConsumerID, claims.ConsumerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func consumerIDFromContext(r *http.Request) int64 {
	if val := r.Context().Value(ctxConsumerID); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

// Auth handlers

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token    string          `json:"token"`
	Consumer domain.Consumer `json:"consumer"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	res, err := h.db.Exec(`INSERT INTO consumers (username, email, password) VALUES (?, ?, ?)`,
		req.Username, strings.ToLower(req.Email), hashed)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to register")
		}
		return
	}
	consumerID, _ := res.LastInsertId()

	token, err := h.generateToken(consumerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{
		Token:    token,
		Consumer: domain.Consumer{ID: consumerID, Username: req.Username, Email: strings.ToLower(req.Email)},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var consumer domain.Consumer
	err := h.db.Get(&consumer, `SELECT id, username, email, password FROM consumers WHERE email = ?`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(consumer.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(consumer.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	consumer.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, Consumer: consumer})
}

// Medicine search

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	medicines, err := h.store.Medicines.Search(r.Context(), query, 25)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

// Order handlers

type orderItemRequest struct {
	MedicineID      int64  `json:"medicine_id,omitempty"`
	MedicineName    string `json:"medicine_name,omitempty"`
	Quantity        int64  `json:"quantity"`
	DosageFrequency string `json:"dosage_frequency,omitempty"`
}

type createOrderRequest struct {
	Items []orderItemRequest `json:"items"`
	// ActionsConfirmed lets the caller proceed past a REQUIRES_ACTION
	// decision after resolving the required actions.
	ActionsConfirmed bool `json:"actions_confirmed,omitempty"`
}

type orderDecisionResponse struct {
	Decision        string                     `json:"decision"`
	RequiredActions []string                   `json:"required_actions"`
	Reasons         []string                   `json:"reasons"`
	Checks          []domain.SafetyCheckResult `json:"checks"`
	Order           *domain.Order              `json:"order,omitempty"`
	Items           []domain.OrderItem         `json:"items,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	consumerID := consumerIDFromContext(r)
	if consumerID <= 0 {
		respondError(w, http.StatusUnauthorized, "invalid consumer context")
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "no items in order")
		return
	}

	ctx := r.Context()
	var (
		lines           []domain.OrderRequest
		allChecks       []domain.SafetyCheckResult
		requiredActions []string
		reasons         []string
		rejected        bool
	)
	for _, item := range req.Items {
		med, err := h.resolveMedicine(ctx, item)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to look up medicine")
			return
		}
		if med == nil {
			respondError(w, http.StatusBadRequest, "unknown medicine in order")
			return
		}

		line := domain.OrderRequest{
			MedicineID:      med.ID,
			Quantity:        safety.SanitizeQuantity(med.Name, item.Quantity, h.maxQuantity),
			DosageFrequency: item.DosageFrequency,
			UnitPrice:       med.Price,
		}

		decision, err := h.evaluator.Evaluate(ctx, consumerID, *med, line)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "safety evaluation failed")
			return
		}
		allChecks = append(allChecks, decision.Checks...)
		requiredActions = append(requiredActions, decision.RequiredActions...)
		reasons = append(reasons, decision.Reasons()...)
		if decision.Decision == domain.DecisionRejected {
			rejected = true
		}
		lines = append(lines, line)
	}

	if rejected {
		respondJSON(w, http.StatusUnprocessableEntity, orderDecisionResponse{
			Decision:        domain.DecisionRejected,
			RequiredActions: dedupe(requiredActions),
			Reasons:         reasons,
			Checks:          allChecks,
		})
		return
	}
	if len(requiredActions) > 0 && !req.ActionsConfirmed {
		respondJSON(w, http.StatusOK, orderDecisionResponse{
			Decision:        domain.DecisionRequiresAction,
			RequiredActions: dedupe(requiredActions),
			Reasons:         reasons,
			Checks:          allChecks,
		})
		return
	}

	var total float64
	for _, line := range lines {
		total += float64(line.Quantity) * line.UnitPrice
	}
	created, items, err := h.orders.Create(ctx, consumerID, lines, total)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderDecisionResponse{
		Decision: domain.DecisionApproved,
		Checks:   allChecks,
		Order:    created,
		Items:    items,
	})
}

func (h *Handler) resolveMedicine(ctx context.Context, item orderItemRequest) (*domain.Medicine, error) {
	if item.MedicineID > 0 {
		return h.store.Medicines.GetByID(ctx, item.MedicineID)
	}
	if strings.TrimSpace(item.MedicineName) != "" {
		return h.store.Medicines.GetByName(ctx, strings.TrimSpace(item.MedicineName))
	}
	return nil, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ord, items, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	if ord == nil || ord.ConsumerID != consumerIDFromContext(r) {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"order": ord, "items": items})
}

type confirmRequest struct {
	PaymentReference string `json:"payment_reference"`
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PaymentReference == "" {
		respondError(w, http.StatusBadRequest, "payment_reference is required")
		return
	}
	ord, err := h.orders.ConfirmAfterPayment(r.Context(), id, req.PaymentReference)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ord)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ord, err := h.orders.Cancel(r.Context(), id)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ord)
}

func (h *Handler) fulfillOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	ord, err := h.orders.Fulfill(r.Context(), id)
	if err != nil {
		h.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ord)
}

// Alert handlers

func (h *Handler) pendingAlerts(w http.ResponseWriter, r *http.Request) {
	consumerID := consumerIDFromContext(r)
	alerts, err := h.forecasts.PendingAlerts(r.Context(), consumerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.ProactiveAlert{}
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (h *Handler) markAlertSent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	if err := h.forecasts.MarkAlertSent(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to mark alert sent")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Forecast handler

func (h *Handler) runForecast(w http.ResponseWriter, r *http.Request) {
	predictions, err := h.forecasts.RunBatch(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "forecast batch failed")
		return
	}
	if predictions == nil {
		predictions = []forecast.Prediction{}
	}
	respondJSON(w, http.StatusOK, predictions)
}

// Helpers

func (h *Handler) respondAppError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation:
			respondError(w, http.StatusBadRequest, ae.Message)
		case apperr.KindPolicyRejection:
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":            ae.Message,
				"reasons":          ae.Reasons,
				"required_actions": ae.Actions,
			})
		case apperr.KindStateConflict:
			respondError(w, http.StatusConflict, ae.Message)
		case apperr.KindNotFound:
			respondError(w, http.StatusNotFound, ae.Message)
		default:
			respondError(w, http.StatusInternalServerError, ae.Message)
		}
		return
	}
	h.log.Error("unhandled error", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
