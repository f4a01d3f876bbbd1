package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/drinks/core"
	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/notify"
)

// the permissions required by the protected routes
const (
	PermissionGetDrinksDetail = "get:drinks-detail"
	PermissionPostDrinks      = "post:drinks"
	PermissionPatchDrinks     = "patch:drinks"
	PermissionDeleteDrinks    = "delete:drinks"
)

// resource is the resource name in notifications
const resource = "drink"

func (b *Backend) handleDrinks(router *mux.Router) {
	nillog := logger.FromContext(nil)
	nillog.Debugln("drinks")
	nillog.Debugln("  handle route: /drinks GET")
	router.HandleFunc("/drinks", b.listDrinks).Methods(http.MethodOptions, http.MethodGet)

	nillog.Debugln("  handle route: /drinks-detail GET")
	router.Handle("/drinks-detail",
		b.guard.RequiresAuth(PermissionGetDrinksDetail, http.HandlerFunc(b.listDrinksDetail))).
		Methods(http.MethodOptions, http.MethodGet)

	nillog.Debugln("  handle route: /drinks POST")
	router.Handle("/drinks",
		b.guard.RequiresAuth(PermissionPostDrinks, http.HandlerFunc(b.createDrink))).
		Methods(http.MethodPost)

	nillog.Debugln("  handle route: /drinks/{id} PATCH")
	router.Handle("/drinks/{id:[0-9]+}",
		b.guard.RequiresAuth(PermissionPatchDrinks, http.HandlerFunc(b.updateDrink))).
		Methods(http.MethodOptions, http.MethodPatch)

	nillog.Debugln("  handle route: /drinks/{id} DELETE")
	router.Handle("/drinks/{id:[0-9]+}",
		b.guard.RequiresAuth(PermissionDeleteDrinks, http.HandlerFunc(b.deleteDrink))).
		Methods(http.MethodDelete)
}

func (b *Backend) listDrinks(w http.ResponseWriter, r *http.Request) {
	all, err := b.repository.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4710: cannot list drinks")
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, drinksResponse{Success: true, Drinks: drinks.ShortList(all)})
}

func (b *Backend) listDrinksDetail(w http.ResponseWriter, r *http.Request) {
	all, err := b.repository.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4711: cannot list drinks")
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, drinksResponse{Success: true, Drinks: drinks.LongList(all)})
}

func (b *Backend) createDrink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in, err := ParseDrinkInput(r)
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	title := ""
	if in.Title != nil {
		title = *in.Title
	}
	recipe := drinks.Recipe{}
	if in.Recipe != nil {
		recipe = *in.Recipe
	}

	drink, err := b.repository.Create(ctx, title, recipe)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 4712: cannot create drink")
		writeServerError(w)
		return
	}
	long := drink.Long()
	b.notify(ctx, core.OperationCreate, long)
	writeJSON(w, http.StatusOK, drinksResponse{Success: true, Drinks: []drinks.LongDrink{long}})
}

func (b *Backend) updateDrink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)
	id, ok := drinkID(r)
	if !ok {
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	in, err := ParseDrinkInput(r)
	if err != nil {
		writeInputError(w, r, err)
		return
	}

	if in.IsEmpty() {
		drink, found, err := b.repository.FindByID(ctx, id)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4713: cannot find drink %d", id)
			writeServerError(w)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, messageNotFound)
			return
		}
		writeJSON(w, http.StatusOK, drinksResponse{Success: true, Drinks: []drinks.LongDrink{drink.Long()}})
		return
	}

	drink, err := b.repository.Update(ctx, id, in.Changes())
	if errors.Is(err, drinks.ErrNotFound) {
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 4714: cannot update drink %d", id)
		writeServerError(w)
		return
	}
	long := drink.Long()
	b.notify(ctx, core.OperationUpdate, long)
	writeJSON(w, http.StatusOK, drinksResponse{Success: true, Drinks: []drinks.LongDrink{long}})
}

func (b *Backend) deleteDrink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := drinkID(r)
	if !ok {
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	err := b.repository.Delete(ctx, id)
	if err != nil {
		if !errors.Is(err, drinks.ErrNotFound) {
			logger.FromContext(ctx).WithError(err).Errorf("Error 4715: cannot delete drink %d", id)
		}
		writeError(w, http.StatusNotFound, messageNotFound)
		return
	}
	b.notifier.Notify(ctx, resource, core.OperationDelete, notify.IDPayload(id))
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Delete: id})
}

func drinkID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func (b *Backend) notify(ctx context.Context, operation core.Operation, drink drinks.LongDrink) {
	payload, err := json.Marshal(drink)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 4716: cannot marshal notification")
		return
	}
	b.notifier.Notify(ctx, resource, operation, payload)
}

// writeInputError answers body parse errors with 400 and invalid recipes with 422
func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).WithError(err).Infoln("rejected body for", r.URL, r.Method)
	if errors.Is(err, drinks.ErrInvalidRecipe) {
		writeError(w, http.StatusUnprocessableEntity, messageUnprocessable)
		return
	}
	writeError(w, http.StatusBadRequest, messageBadRequest)
}
