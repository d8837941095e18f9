package handlers

import (
	"errors"
	"net/http"

	"github.com/AnshRaj112/ecoscan-backend/internal/coordinator"
	"github.com/AnshRaj112/ecoscan-backend/internal/scanner"
)

type ScanRequest struct {
	Barcode string `json:"barcode"`
}

type ScanResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Result  *scanner.Result    `json:"result,omitempty"`
	State   *coordinator.State `json:"state,omitempty"`
}

// Scan runs the barcode through the scan pipeline and awards the caller.
// Anonymous devices accrue points locally until they sign in.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, id, ok := h.withCoordinator(w, r)
	if !ok {
		return
	}

	res, err := h.Scanner.Process(r.Context(), id.Key(), req.Barcode, c)
	status, msg := scanOutcome(err)
	if status != http.StatusOK && !errors.Is(err, scanner.ErrNotPlasticBottle) {
		if status >= http.StatusInternalServerError {
			h.log.Warnw("scan failed", "caller", id.Key(), "barcode", res.Barcode, "error", err)
		}
		writeFailure(w, status, msg)
		return
	}

	st := c.Snapshot()
	writeJSON(w, status, ScanResponse{Success: err == nil, Message: msg, Result: &res, State: &st})
}

// scanOutcome maps a scan error to its HTTP status and user-facing message.
func scanOutcome(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, "Great job! Points added."
	case errors.Is(err, scanner.ErrEmptyBarcode):
		return http.StatusBadRequest, "Barcode is required"
	case errors.Is(err, scanner.ErrDuplicateScan):
		return http.StatusTooManyRequests, "This bottle was just scanned. Try another one."
	case errors.Is(err, scanner.ErrProductNotFound):
		return http.StatusUnprocessableEntity, "Product not found in database."
	case errors.Is(err, scanner.ErrNotPlasticBottle):
		return http.StatusUnprocessableEntity, "This does not appear to be a plastic bottle."
	case errors.Is(err, scanner.ErrLookupUnavailable):
		return http.StatusBadGateway, "Could not reach the product database. Please try again."
	default:
		return http.StatusServiceUnavailable, "Failed to save your points. Please try again."
	}
}
