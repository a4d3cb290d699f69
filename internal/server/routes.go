package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Itinerary (day-partitioned trip state)
	mux.HandleFunc("/api/itinerary", s.handleItineraryRoute)                        // GET (snapshot), DELETE (clear)
	mux.HandleFunc("/api/itinerary/title", s.handleItineraryTitleRoute)             // PUT - rename itinerary
	mux.HandleFunc("/api/itinerary/active-day", s.handleItineraryActiveDayRoute)    // PUT - switch active day
	mux.HandleFunc("/api/itinerary/days", s.handleItineraryDaysRoute)               // POST - append a day
	mux.HandleFunc("/api/itinerary/days/", s.handleItineraryDayRoutes)              // PUT /{i}/order
	mux.HandleFunc("/api/itinerary/assign", s.handleItineraryAssignRoute)           // POST - schedule a place
	mux.HandleFunc("/api/itinerary/move", s.handleItineraryMoveRoute)               // POST - move between days
	mux.HandleFunc("/api/itinerary/drop", s.handleItineraryDropRoute)               // POST - drag-and-drop payload
	mux.HandleFunc("/api/itinerary/places/", s.handleItineraryPlaceRoutes)          // PATCH/DELETE /{key}
	mux.HandleFunc("/api/itinerary/pool", s.handleItineraryPoolRoute)               // GET - unscheduled places
	mux.HandleFunc("/api/itinerary/export/html", s.app.ItineraryHandler.ExportHTMLHandler)
	mux.HandleFunc("/api/itinerary/export/pdf", s.app.ItineraryHandler.ExportPDFHandler)

	// API routes - Place bookmarks
	mux.HandleFunc("/api/places", s.handlePlacesRoute)                     // GET (list), POST (add)
	mux.HandleFunc("/api/places/maps-key", s.app.PlacesHandler.MapsKeyHandler) // GET - maps API key for the front end
	mux.HandleFunc("/api/places/", s.handlePlaceRoutes)                    // DELETE /{key}

	// API routes - Wizard drafts (expiring)
	mux.HandleFunc("/api/drafts/", s.handleDraftRoutes) // GET/PUT/DELETE /{key}, GET /{key}/status

	// API routes - Saved trips
	mux.HandleFunc("/api/trips", s.handleTripsRoute) // GET (list), POST (save, bearer auth)
	mux.HandleFunc("/api/trips/", s.handleTripRoutes) // GET/DELETE /{id}

	// API routes - Key/value settings
	mux.HandleFunc("/api/kv/", s.handleKVRoutes) // GET/PUT /{key}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleItineraryRoute routes /api/itinerary requests (snapshot and clear)
func (s *Server) handleItineraryRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"GET":    s.app.ItineraryHandler.GetItineraryHandler,
		"DELETE": s.app.ItineraryHandler.ClearItineraryHandler,
	})
}

func (s *Server) handleItineraryTitleRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"PUT": s.app.ItineraryHandler.SetTitleHandler})
}

func (s *Server) handleItineraryActiveDayRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"PUT": s.app.ItineraryHandler.SetActiveDayHandler})
}

func (s *Server) handleItineraryDaysRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"POST": s.app.ItineraryHandler.AddDayHandler})
}

// handleItineraryDayRoutes routes /api/itinerary/days/{i}/... requests
func (s *Server) handleItineraryDayRoutes(w http.ResponseWriter, r *http.Request) {
	// PUT /api/itinerary/days/{i}/order
	if strings.HasSuffix(r.URL.Path, "/order") {
		RouteByMethod(w, r, MethodRouter{"PUT": s.app.ItineraryHandler.ReorderDayHandler})
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

func (s *Server) handleItineraryAssignRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"POST": s.app.ItineraryHandler.AssignPlaceHandler})
}

func (s *Server) handleItineraryMoveRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"POST": s.app.ItineraryHandler.MovePlaceHandler})
}

func (s *Server) handleItineraryDropRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"POST": s.app.ItineraryHandler.DropHandler})
}

// handleItineraryPlaceRoutes routes /api/itinerary/places/{key} requests
func (s *Server) handleItineraryPlaceRoutes(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		"PATCH":  s.app.ItineraryHandler.UpdatePlaceHandler,
		"DELETE": s.app.ItineraryHandler.RemovePlaceHandler,
	})
}

func (s *Server) handleItineraryPoolRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{"GET": s.app.ItineraryHandler.PoolHandler})
}

// handlePlacesRoute routes /api/places requests (list and add)
func (s *Server) handlePlacesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.PlacesHandler.ListPlacesHandler, s.app.PlacesHandler.AddPlaceHandler)
}

// handlePlaceRoutes routes /api/places/{key} requests
func (s *Server) handlePlaceRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "DELETE":
		s.app.PlacesHandler.DeletePlaceHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDraftRoutes routes /api/drafts/{key} requests
func (s *Server) handleDraftRoutes(w http.ResponseWriter, r *http.Request) {
	// GET /api/drafts/{key}/status
	if strings.HasSuffix(r.URL.Path, "/status") {
		RouteByMethod(w, r, MethodRouter{"GET": s.app.DraftsHandler.DraftStatusHandler})
		return
	}

	RouteResourceItem(w, r,
		s.app.DraftsHandler.GetDraftHandler,
		s.app.DraftsHandler.SaveDraftHandler,
		s.app.DraftsHandler.ClearDraftHandler)
}

// handleTripsRoute routes /api/trips requests (list and save)
func (s *Server) handleTripsRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.TripsHandler.ListTripsHandler, s.app.TripsHandler.SaveTripHandler)
}

// handleTripRoutes routes /api/trips/{id} requests
func (s *Server) handleTripRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.TripsHandler.GetTripHandler(w, r)
	case "DELETE":
		s.app.TripsHandler.DeleteTripHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleKVRoutes routes /api/kv/{key} requests
func (s *Server) handleKVRoutes(w http.ResponseWriter, r *http.Request) {
	RouteResourceItem(w, r, s.app.KVHandler.GetKVHandler, s.app.KVHandler.UpdateKVHandler, nil)
}
