// Package httpapi exposes the application services over REST.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/mealdesk/mealdesk/internal/app"
	"github.com/mealdesk/mealdesk/internal/app/domain/canteen"
	"github.com/mealdesk/mealdesk/internal/app/domain/meal"
	"github.com/mealdesk/mealdesk/internal/app/domain/order"
	"github.com/mealdesk/mealdesk/internal/app/domain/user"
	"github.com/mealdesk/mealdesk/internal/app/metrics"
	"github.com/mealdesk/mealdesk/internal/errors"
	"github.com/mealdesk/mealdesk/internal/middleware"
	"github.com/mealdesk/mealdesk/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the REST API. Authentication and
// admin gating are applied per subrouter; prices cross the boundary in
// display units and are converted exactly once here.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	auth := middleware.NewAuthMiddleware(application.Identity, log)

	r := mux.NewRouter()
	r.Use(middleware.Metrics())
	r.Use(middleware.Logging(log))

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/menu", h.menu).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(auth.Handler)
	authed.HandleFunc("/me", h.me).Methods(http.MethodGet)
	authed.HandleFunc("/orders", h.placeOrder).Methods(http.MethodPost)
	authed.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	authed.HandleFunc("/orders/{id}", h.deleteOrder).Methods(http.MethodDelete)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Handler, auth.RequireAdmin)
	admin.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	admin.HandleFunc("/canteens", h.createCanteen).Methods(http.MethodPost)
	admin.HandleFunc("/canteens", h.listCanteens).Methods(http.MethodGet)
	admin.HandleFunc("/canteens/{id}", h.getCanteen).Methods(http.MethodGet)
	admin.HandleFunc("/canteens/{id}", h.updateCanteen).Methods(http.MethodPatch)
	admin.HandleFunc("/canteens/{id}", h.deleteCanteen).Methods(http.MethodDelete)
	admin.HandleFunc("/canteens/{id}/meals", h.createMeal).Methods(http.MethodPost)
	admin.HandleFunc("/canteens/{id}/meals", h.listMeals).Methods(http.MethodGet)
	admin.HandleFunc("/meals/{id}", h.updateMeal).Methods(http.MethodPatch)
	admin.HandleFunc("/meals/{id}", h.deleteMeal).Methods(http.MethodDelete)
	admin.HandleFunc("/orders/{id}/pay", h.markPaid).Methods(http.MethodPost)
	admin.HandleFunc("/summary", h.summary).Methods(http.MethodGet)
	admin.HandleFunc("/settings", h.listSettings).Methods(http.MethodGet)
	admin.HandleFunc("/settings", h.putSetting).Methods(http.MethodPut)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}

	// Self-registration never grants admin.
	u, err := h.app.Identity.Register(r.Context(), payload.Username, payload.Email, payload.Password, false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}

	token, err := h.app.Identity.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.app.Identity.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.app.Identity.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- menu and catalog ---

func (h *handler) menu(w http.ResponseWriter, r *http.Request) {
	menus, err := h.app.Catalog.ActiveMenu(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]menuResponse, 0, len(menus))
	for _, m := range menus {
		entry := menuResponse{Canteen: toCanteenResponse(m.Canteen), Meals: make([]mealResponse, 0, len(m.Meals))}
		for _, item := range m.Meals {
			entry.Meals = append(entry.Meals, toMealResponse(item))
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createCanteen(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Active      *bool  `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	c, err := h.app.Catalog.CreateCanteen(r.Context(), payload.Name, payload.Description, active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCanteenResponse(c))
}

func (h *handler) listCanteens(w http.ResponseWriter, r *http.Request) {
	canteens, err := h.app.Catalog.ListCanteens(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]canteenResponse, 0, len(canteens))
	for _, c := range canteens {
		out = append(out, toCanteenResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getCanteen(w http.ResponseWriter, r *http.Request) {
	c, err := h.app.Catalog.GetCanteen(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCanteenResponse(c))
}

func (h *handler) updateCanteen(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Active      *bool   `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}

	c, err := h.app.Catalog.UpdateCanteen(r.Context(), mux.Vars(r)["id"], payload.Name, payload.Description, payload.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCanteenResponse(c))
}

func (h *handler) deleteCanteen(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.DeleteCanteen(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) createMeal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   string  `json:"name"`
		Price  float64 `json:"price"`
		Active *bool   `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}
	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	m, err := h.app.Catalog.CreateMeal(r.Context(), mux.Vars(r)["id"], payload.Name, order.MinorAmount(payload.Price), active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMealResponse(m))
}

func (h *handler) listMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := h.app.Catalog.ListMeals(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]mealResponse, 0, len(meals))
	for _, m := range meals {
		out = append(out, toMealResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) updateMeal(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   *string  `json:"name"`
		Price  *float64 `json:"price"`
		Active *bool    `json:"active"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}
	var price *int64
	if payload.Price != nil {
		minor := order.MinorAmount(*payload.Price)
		price = &minor
	}

	m, err := h.app.Catalog.UpdateMeal(r.Context(), mux.Vars(r)["id"], payload.Name, price, payload.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMealResponse(m))
}

func (h *handler) deleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.DeleteMeal(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- orders ---

func (h *handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MealID string `json:"meal_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}
	if strings.TrimSpace(payload.MealID) == "" {
		writeError(w, errors.BadInput("meal_id is required"))
		return
	}

	placed, err := h.app.Orders.Place(r.Context(), middleware.GetUserID(r.Context()), payload.MealID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(placed))
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Orders.ListForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.app.Orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	// Only the owner or an admin may read an order.
	if o.UserID != middleware.GetUserID(r.Context()) && !middleware.IsAdmin(r.Context()) {
		writeError(w, errors.NotFound("order %s not found", o.ID))
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.app.Orders.Delete(ctx, mux.Vars(r)["id"], middleware.GetUserID(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markPaid(w http.ResponseWriter, r *http.Request) {
	o, err := h.app.Orders.MarkPaid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := order.ParseDate(raw)
		if err != nil {
			writeError(w, errors.BadInput("date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}

	summary, err := h.app.Orders.DailySummary(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

// --- settings ---

func (h *handler) listSettings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.Settings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		out[entry.Key] = entry.Value
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) putSetting(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, errors.BadInput("invalid request body"))
		return
	}

	entry, err := h.app.Settings.Put(r.Context(), payload.Key, payload.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": entry.Key, "value": entry.Value})
}

// --- response shapes ---

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u user.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, IsAdmin: u.IsAdmin, CreatedAt: u.CreatedAt}
}

type canteenResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCanteenResponse(c canteen.Canteen) canteenResponse {
	return canteenResponse{ID: c.ID, Name: c.Name, Description: c.Description, Active: c.Active, CreatedAt: c.CreatedAt}
}

type mealResponse struct {
	ID        string  `json:"id"`
	CanteenID string  `json:"canteen_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Active    bool    `json:"active"`
}

func toMealResponse(m meal.Meal) mealResponse {
	return mealResponse{ID: m.ID, CanteenID: m.CanteenID, Name: m.Name, Price: order.DisplayAmount(m.Price), Active: m.Active}
}

type menuResponse struct {
	Canteen canteenResponse `json:"canteen"`
	Meals   []mealResponse  `json:"meals"`
}

type orderResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MealName  string    `json:"meal_name"`
	Price     float64   `json:"price"`
	IsPaid    bool      `json:"is_paid"`
	OrderDate string    `json:"order_date"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrderResponse(o order.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		MealName:  o.MealName,
		Price:     order.DisplayAmount(o.Price),
		IsPaid:    o.Paid,
		OrderDate: order.FormatDate(o.OrderDate),
		CreatedAt: o.CreatedAt,
	}
}

type summaryGroupResponse struct {
	MealName string  `json:"meal_name"`
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

type summaryResponse struct {
	Date        string                 `json:"date"`
	TotalOrders int                    `json:"total_orders"`
	TotalAmount float64                `json:"total_amount"`
	Groups      []summaryGroupResponse `json:"groups"`
}

func toSummaryResponse(s order.Summary) summaryResponse {
	out := summaryResponse{
		Date:        order.FormatDate(s.Date),
		TotalOrders: s.TotalOrders,
		TotalAmount: order.DisplayAmount(s.TotalAmount),
		Groups:      make([]summaryGroupResponse, 0, len(s.Groups)),
	}
	for _, g := range s.Groups {
		out.Groups = append(out.Groups, summaryGroupResponse{MealName: g.MealName, Count: g.Count, Subtotal: order.DisplayAmount(g.Subtotal)})
	}
	return out
}

// --- helpers ---

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
