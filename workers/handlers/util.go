package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"xrplprover/prover"

	log "github.com/sirupsen/logrus"
)

type senderKey struct{}

// WithSender stores the authenticated caller address in ctx.
func WithSender(ctx context.Context, sender string) context.Context {
	return context.WithValue(ctx, senderKey{}, sender)
}

// Sender returns the authenticated caller address, or "" for anonymous
// requests.
func Sender(r *http.Request) string {
	sender, _ := r.Context().Value(senderKey{}).(string)
	return sender
}

func responseJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func responsePlain(w http.ResponseWriter, data []byte, code int) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(code)
	w.Write(data)
}

// readJSON decodes the request body into v and answers 400 on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.WithError(err).Warn("error reading request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return false
	}

	if err := json.Unmarshal(body, v); err != nil {
		log.WithError(err).Warn("error unmarshalling request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return false
	}
	return true
}

var errorCodes = []struct {
	code int
	errs []error
}{
	{http.StatusBadRequest, []error{
		prover.ErrInvalidAmount,
		prover.ErrInvalidPaymentAmount,
		prover.ErrInvalidChainName,
		prover.ErrInvalidTicketCountThreshold,
		prover.ErrInvalidSigningThreshold,
		prover.ErrInvalidMessageID,
		prover.ErrInvalidPayload,
		prover.ErrInvalidToken,
		prover.ErrInvalidSignerPublicKeys,
		prover.ErrTooManySigners,
		prover.ErrInvalidSignerWeight,
		prover.ErrInvalidTransactionStatus,
	}},
	{http.StatusConflict, []error{
		prover.ErrPreviousTicketCreateTxPending,
		prover.ErrTicketCountThresholdNotReached,
		prover.ErrTransactionStatusAlreadyUpdated,
		prover.ErrPaymentAlreadyPending,
		prover.ErrWorkerSetUnchanged,
		prover.ErrVerifierSetUpdatePending,
	}},
	{http.StatusNotFound, []error{
		prover.ErrProofNotFound,
		prover.ErrWorkerSetIsNotSet,
		prover.ErrTokenNotRegistered,
		prover.ErrMessageNotFound,
	}},
	{http.StatusForbidden, []error{prover.ErrUnauthorized}},
	{http.StatusBadGateway, []error{
		prover.ErrSerializationFailed,
		prover.ErrInvalidContractReply,
	}},
}

func errorCode(err error) int {
	for _, group := range errorCodes {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.code
			}
		}
	}
	return http.StatusInternalServerError
}

// responseError answers with the status code matching err's kind.
func responseError(w http.ResponseWriter, r *http.Request, err error, field string) {
	code := errorCode(err)
	entry := log.WithFields(log.Fields{
		"path":   r.URL.Path,
		"sender": Sender(r),
		"code":   code,
	}).WithError(err)
	if code == http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	responseJSON(w, &APIResponse{
		Status:  "error",
		Message: err.Error(),
		Field:   field,
	}, code)
}
