package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"

	"affilink/pkg/api"
	"affilink/pkg/config"
	"affilink/pkg/fetch"
	"affilink/pkg/models"
	"affilink/pkg/pipeline"
	"affilink/pkg/platform"
	"affilink/pkg/scrapers/generic"
	"affilink/pkg/scrapers/shopee"
	"affilink/pkg/store"
)

// scraperSemaphore bounds concurrent extractions to keep the headless
// browser and outbound request volume under control.
var scraperSemaphore = make(chan struct{}, 3)

func main() {
	config.LoadEnv()
	cfg := config.Load("config.yml")

	productStore, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer productStore.Close()
	log.Printf("Store initialized at %s with fresh TTL %d minutes", cfg.Store.Path, cfg.Store.FreshTTLMinutes)

	client := fetch.New(fetch.Options{
		Timeout:   cfg.FetchTimeout(),
		UserAgent: cfg.Fetch.UserAgent,
		Attempts:  cfg.Fetch.Attempts,
		BaseDelay: cfg.FetchBaseDelay(),
		MaxDelay:  cfg.FetchMaxDelay(),
	})
	registry := pipeline.NewRegistry(client,
		generic.Options{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.FetchTimeout(),
			Attempts:  cfg.Fetch.Attempts,
			BaseDelay: cfg.FetchBaseDelay(),
			MaxDelay:  cfg.FetchMaxDelay(),
		},
		shopee.Options{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.BrowserTimeout(),
		},
	)
	pl := pipeline.New(registry, productStore, cfg.FreshTTL())

	http.HandleFunc("/", rootHandler(pl))

	port := cfg.Server.Port
	ip := GetOutboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), port)
	} else {
		fmt.Println("Could not determine local IP address.")
	}
	fmt.Printf("Access URL: http://localhost:%s\n", port)
	fmt.Printf("API Docs: http://localhost:%s/\n", port)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           nil,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func rootHandler(pl *pipeline.Pipeline) http.HandlerFunc {
	parse := parseLinkHandler(pl)
	batch := batchHandler(pl)

	return func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimSuffix(r.URL.Path, "/") {
		case "/parse-link":
			parse(w, r)
			return
		case "/parse-link/batch":
			batch(w, r)
			return
		}
		if r.URL.Path != "/" {
			api.WriteError(w, http.StatusNotFound, "Not Found", "unknown_route", "Unknown path. Use /parse-link or /parse-link/batch.", r.URL.Path)
			return
		}

		// Serve Scalar docs on root path
		html, err := scalargo.NewV2(
			scalargo.WithSpecDir("./"),
			scalargo.WithMetaDataOpts(
				scalargo.WithTitle("Affiliate Link Parser API"),
			),
		)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}

type parseLinkRequest struct {
	URL           string `json:"url"`
	Platform      string `json:"platform,omitempty"`
	ExtractImages *bool  `json:"extractImages,omitempty"`
	SaveToDB      *bool  `json:"saveToDb,omitempty"`
}

type parseLinkResponse struct {
	Success bool                  `json:"success"`
	Product *models.ParsedProduct `json:"product"`
}

type batchResult struct {
	URL     string                `json:"url"`
	Success bool                  `json:"success"`
	Product *models.ParsedProduct `json:"product,omitempty"`
	Error   *batchError           `json:"error,omitempty"`
}

type batchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func parseLinkHandler(pl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req parseLinkRequest

		switch r.Method {
		case http.MethodGet:
			q := r.URL.Query()
			req.URL = q.Get("url")
			req.Platform = q.Get("platform")
			if v := q.Get("extractImages"); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					api.WriteBadRequest(w, "invalid_parameter", "extractImages must be a boolean", r.URL.Path)
					return
				}
				req.ExtractImages = &b
			}
			if v := q.Get("saveToDb"); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					api.WriteBadRequest(w, "invalid_parameter", "saveToDb must be a boolean", r.URL.Path)
					return
				}
				req.SaveToDB = &b
			}
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				api.WriteBadRequest(w, "invalid_body", "Invalid JSON body.", r.URL.Path)
				return
			}
			defer r.Body.Close()
		default:
			api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "method_not_allowed", "Use GET or POST.", r.URL.Path)
			return
		}

		opts, err := runOptions(req)
		if err != nil {
			api.WritePipelineError(w, err, r.URL.Path)
			return
		}

		scraperSemaphore <- struct{}{}
		product, err := pl.Run(r.Context(), req.URL, opts)
		<-scraperSemaphore

		if err != nil {
			log.Printf("Pipeline failed for %q: %v", req.URL, err)
			api.WritePipelineError(w, err, r.URL.Path)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(parseLinkResponse{Success: true, Product: product}); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

func batchHandler(pl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "method_not_allowed", "Use POST for the batch endpoint.", r.URL.Path)
			return
		}

		var reqs []parseLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			api.WriteBadRequest(w, "invalid_body", "Invalid JSON body. Expected array of objects.", r.URL.Path)
			return
		}
		defer r.Body.Close()

		results := make([]batchResult, 0, len(reqs))
		for _, req := range reqs {
			result := batchResult{URL: req.URL}

			opts, err := runOptions(req)
			if err == nil {
				scraperSemaphore <- struct{}{}
				result.Product, err = pl.Run(r.Context(), req.URL, opts)
				<-scraperSemaphore
			}

			if err != nil {
				log.Printf("Batch item failed for %q: %v", req.URL, err)
				result.Error = &batchError{Code: api.Code(err), Message: err.Error()}
			} else {
				result.Success = true
			}
			results = append(results, result)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(results); err != nil {
			log.Printf("Error encoding batch response: %v", err)
		}
	}
}

// runOptions validates the request and translates it into pipeline
// options. Images are extracted by default; persistence is opt-in.
func runOptions(req parseLinkRequest) (pipeline.Options, error) {
	if strings.TrimSpace(req.URL) == "" {
		return pipeline.Options{}, fmt.Errorf("%w: missing url", models.ErrInvalidURL)
	}
	id, err := platform.ParseID(req.Platform)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{Platform: id, ExtractImages: true}
	if req.ExtractImages != nil {
		opts.ExtractImages = *req.ExtractImages
	}
	if req.SaveToDB != nil {
		opts.SaveToDB = *req.SaveToDB
	}
	return opts, nil
}
