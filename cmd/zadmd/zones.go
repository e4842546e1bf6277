package main

import (
	"io"
	"net/http"

	"github.com/gorilla/context"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	"github.com/citrus-it/zadm"
)

const zoneKey string = "zadmZone"

// RegisterZoneRoutes registers the zone routes and handlers
func RegisterZoneRoutes(prefix string, router *mux.Router, m *metricsContext) {
	zoneMiddleware := alice.New(
		loadZone,
	)

	router.Handle(prefix, m.mmw.HandlerFunc(ListZones, "list")).Methods("GET")

	sub := router.PathPrefix(prefix).Subrouter()
	sub.Handle("/{zoneName}", zoneMiddleware.Append(m.mmw.HandlerWrapper("get")).ThenFunc(GetZone)).Methods("GET")
	sub.Handle("/{zoneName}/validate", zoneMiddleware.Append(m.mmw.HandlerWrapper("validate")).ThenFunc(ValidateZoneConfig)).Methods("POST")
}

// loadZone is middleware to fetch the zone named in the request path
func loadZone(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hr := HTTPResponse{w}
		ctx := GetContext(r)
		vars := mux.Vars(r)
		zone, err := ctx.Zone(vars["zoneName"])
		if err != nil {
			hr.JSONMsg(http.StatusNotFound, err.Error())
			return
		}
		context.Set(r, zoneKey, zone)
		h.ServeHTTP(w, r)
	})
}

// getRequestZone retrieves the zone loaded for a request
func getRequestZone(r *http.Request) *zadm.Zone {
	if value := context.Get(r, zoneKey); value != nil {
		return value.(*zadm.Zone)
	}
	return nil
}

// ListZones gets a list of all zones
func ListZones(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	ctx := GetContext(r)
	zones, err := ctx.Zones()
	if err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}
	hr.JSON(http.StatusOK, zones)
}

// GetZone returns a zone's structured configuration
func GetZone(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	zone := getRequestZone(r)
	cfg, err := zone.CurrentConfig()
	if err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}
	hr.JSON(http.StatusOK, cfg.Values)
}

// ValidateZoneConfig parses and validates a candidate configuration without
// committing anything. The body is the relaxed textual form.
func ValidateZoneConfig(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	zone := getRequestZone(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		hr.JSONError(http.StatusBadRequest, err)
		return
	}

	prev, err := zone.CurrentConfig()
	if err != nil {
		hr.JSONError(http.StatusInternalServerError, err)
		return
	}

	cfg, err := zadm.ParseConfig(body)
	if err != nil {
		hr.JSONMsg(http.StatusBadRequest, err.Error())
		return
	}
	validated, err := zadm.Validate(zone.Brand, cfg, prev)
	if err != nil {
		hr.JSONMsg(http.StatusBadRequest, err.Error())
		return
	}
	hr.JSON(http.StatusOK, validated.Values)
}

// ListBrands returns the registered brands
func ListBrands(w http.ResponseWriter, r *http.Request) {
	hr := HTTPResponse{w}
	hr.JSON(http.StatusOK, zadm.Brands())
}
