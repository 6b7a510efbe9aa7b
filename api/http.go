package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hicommonwealth/ethrelay/core"
	"github.com/hicommonwealth/ethrelay/core/types"
	"github.com/hicommonwealth/ethrelay/log"
	"github.com/rs/cors"
)

// Server exposes the relay over HTTP JSON: header submission plus the tip,
// header and ancestry queries.
type Server struct {
	relay      *core.Relay
	httpServer *http.Server
	logger     *log.Logger
}

func NewServer(relay *core.Relay, logger *log.Logger) *Server {
	return &Server{relay: relay, logger: logger}
}

// Start serves the API on the given port until Stop is called. CORS is left
// open so browser dashboards can talk to the relay directly.
func (s *Server) Start(port string) error {
	handler := cors.Default().Handler(s.newServeMux())
	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}
	s.logger.WithField("port", port).Info("http server listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		s.logger.WithField("err", err).Error("error stopping http server")
	}
}

func (s *Server) newServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/submit", s.submitHandler)
	mux.HandleFunc("/tip", s.tipHandler)
	mux.HandleFunc("/header/", s.headerHandler)
	mux.HandleFunc("/ancestors/", s.ancestorsHandler)
	mux.HandleFunc("/isancestor", s.isAncestorHandler)
	return mux
}

type submitRequest struct {
	// Header is the hex encoded canonical RLP of the submitted header.
	Header hexutil.Bytes `json:"header"`
	// Proof optionally carries a hex encoded dataset proof; when present the
	// seal is checked against it instead of locally generated ethash data.
	Proof hexutil.Bytes `json:"proof"`
}

type submitResponse struct {
	Status     string       `json:"status"`
	ReorgDepth uint64       `json:"reorgDepth"`
	HeaderHash common.Hash  `json:"headerHash"`
	TipHash    common.Hash  `json:"tipHash"`
	TipNumber  uint64       `json:"tipNumber"`
	TipTd      *hexutil.Big `json:"tipTotalDifficulty"`
}

type tipResponse struct {
	Hash            common.Hash  `json:"hash"`
	Number          uint64       `json:"number"`
	TotalDifficulty *hexutil.Big `json:"totalDifficulty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handler for the /submit endpoint
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var (
		res *core.SubmitResult
		err error
	)
	if len(req.Proof) > 0 {
		res, err = s.relay.SubmitWithProof(req.Header, req.Proof)
	} else {
		res, err = s.relay.Submit(req.Header)
	}
	if err != nil {
		s.logger.WithField("err", err).Debug("submission rejected")
		writeError(w, submitErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, &submitResponse{
		Status:     res.Status.String(),
		ReorgDepth: res.ReorgDepth,
		HeaderHash: res.HeaderHash,
		TipHash:    res.TipHash,
		TipNumber:  res.TipNumber,
		TipTd:      (*hexutil.Big)(res.TipTd),
	})
}

// submitErrorStatus maps the relay's rejection taxonomy onto HTTP codes. An
// orphan is the only retryable rejection, everything else is the submitter's
// fault.
func submitErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrOrphanHeader):
		return http.StatusConflict
	case errors.Is(err, core.ErrDecode),
		errors.Is(err, core.ErrDifficultyMismatch),
		errors.Is(err, core.ErrPowInvalid),
		errors.Is(err, core.ErrInvalidHeader),
		errors.Is(err, core.ErrProofRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handler for the /tip endpoint
func (s *Server) tipHandler(w http.ResponseWriter, r *http.Request) {
	hash, number, td := s.relay.CanonicalTip()
	writeJSON(w, http.StatusOK, &tipResponse{
		Hash:            hash,
		Number:          number,
		TotalDifficulty: (*hexutil.Big)(td),
	})
}

// handler for the /header/{hash-or-number} endpoint
func (s *Server) headerHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/header/")

	var header *types.Header
	if number, err := strconv.ParseUint(key, 10, 64); err == nil {
		header = s.relay.HeaderByNumber(number)
	} else {
		header = s.relay.HeaderByHash(common.HexToHash(key))
	}
	if header == nil {
		writeError(w, http.StatusNotFound, errors.New("header not found"))
		return
	}
	writeJSON(w, http.StatusOK, header)
}

// handler for the /ancestors/{hash}?depth=N endpoint
func (s *Server) ancestorsHandler(w http.ResponseWriter, r *http.Request) {
	hash := common.HexToHash(strings.TrimPrefix(r.URL.Path, "/ancestors/"))

	depth := uint64(16)
	if v := r.URL.Query().Get("depth"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		depth = parsed
	}
	ancestors := s.relay.Ancestors(hash, depth)
	if ancestors == nil {
		writeError(w, http.StatusNotFound, errors.New("header not found"))
		return
	}
	hashes := make([]common.Hash, len(ancestors))
	for i, header := range ancestors {
		hashes[i] = header.Hash()
	}
	writeJSON(w, http.StatusOK, hashes)
}

// handler for the /isancestor?candidate=0x..&of=0x.. endpoint
func (s *Server) isAncestorHandler(w http.ResponseWriter, r *http.Request) {
	candidate := r.URL.Query().Get("candidate")
	of := r.URL.Query().Get("of")
	if candidate == "" || of == "" {
		writeError(w, http.StatusBadRequest, errors.New("candidate and of query parameters required"))
		return
	}
	result := s.relay.IsAncestor(common.HexToHash(candidate), common.HexToHash(of))
	writeJSON(w, http.StatusOK, map[string]bool{"isAncestor": result})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &errorResponse{Error: err.Error()})
}
