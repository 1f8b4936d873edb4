package api

import (
	_ "embed"
	"net/http"
)

//go:embed docs/swagger.json
var swaggerDoc []byte

func swaggerDocHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(swaggerDoc)
}
