package service

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/mosaicnetworks/streamlet/src/streamlet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Reporter produces a snapshot of a run. streamlet.Protocol is a Reporter.
type Reporter interface {
	Report() *streamlet.RunReport
}

// Service serves the state of a run over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	reporter    Reporter
	gatherer    prometheus.Gatherer
	mux         *http.ServeMux
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string,
	reporter Reporter,
	gatherer prometheus.Gatherer,
	logger *logrus.Entry) *Service {

	service := Service{
		bindAddress: bindAddress,
		reporter:    reporter,
		gatherer:    gatherer,
		mux:         http.NewServeMux(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Streamlet API handlers")
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	s.mux.HandleFunc("/stats/", s.makeHandler(s.GetNodeStats))
	s.mux.HandleFunc("/report", s.makeHandler(s.GetReport))
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the handler serving every endpoint.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Streamlet API")

	err := http.ListenAndServe(s.bindAddress, s.mux)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats returns the stats of every node.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := s.reporter.Report().Nodes

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetNodeStats returns the stats of the node whose id follows /stats/.
func (s *Service) GetNodeStats(w http.ResponseWriter, r *http.Request) {
	param := r.URL.Path[len("/stats/"):]

	id, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing node parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	stats := s.reporter.Report().Nodes
	if id < 0 || id >= len(stats) {
		http.Error(w, "unknown node "+param, http.StatusNotFound)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats[id])
}

// GetReport returns the full report of the run so far.
func (s *Service) GetReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.reporter.Report().Marshal()
	if err != nil {
		s.logger.WithError(err).Error("Marshalling report")

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	w.Write(res)
}
