package apiv1

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface lists every operation of the v1 API.
type ServerInterface interface {
	CreateCode(w http.ResponseWriter, r *http.Request)
	CreateBatch(w http.ResponseWriter, r *http.Request)
	ListCodes(w http.ResponseWriter, r *http.Request, params ListCodesParams)
	CodeStats(w http.ResponseWriter, r *http.Request)
	DeleteCodes(w http.ResponseWriter, r *http.Request)
	DeleteCode(w http.ResponseWriter, r *http.Request, id string)
	GetCodeQR(w http.ResponseWriter, r *http.Request, code string)
	GetCodeQRImage(w http.ResponseWriter, r *http.Request, code string)
	Redeem(w http.ResponseWriter, r *http.Request)
	CheckCode(w http.ResponseWriter, r *http.Request, params CheckCodeParams)
}

// serverWrapper binds path and query parameters before calling the handler.
type serverWrapper struct {
	Handler ServerInterface
}

func (sw *serverWrapper) ListCodes(w http.ResponseWriter, r *http.Request) {
	var params ListCodesParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "type", q, &params.Type); err != nil {
		writeParamError(w, "type", err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "used", q, &params.Used); err != nil {
		writeParamError(w, "used", err)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "batch", q, &params.Batch); err != nil {
		writeParamError(w, "batch", err)
		return
	}
	sw.Handler.ListCodes(w, r, params)
}

func (sw *serverWrapper) DeleteCode(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := bindPath(r, "id", &id); err != nil {
		writeParamError(w, "id", err)
		return
	}
	sw.Handler.DeleteCode(w, r, id)
}

func (sw *serverWrapper) GetCodeQR(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := bindPath(r, "code", &code); err != nil {
		writeParamError(w, "code", err)
		return
	}
	sw.Handler.GetCodeQR(w, r, code)
}

func (sw *serverWrapper) GetCodeQRImage(w http.ResponseWriter, r *http.Request) {
	var code string
	if err := bindPath(r, "code", &code); err != nil {
		writeParamError(w, "code", err)
		return
	}
	sw.Handler.GetCodeQRImage(w, r, code)
}

func (sw *serverWrapper) CheckCode(w http.ResponseWriter, r *http.Request) {
	var params CheckCodeParams
	if err := runtime.BindQueryParameter("form", true, true, "code", r.URL.Query(), &params.Code); err != nil {
		writeParamError(w, "code", err)
		return
	}
	sw.Handler.CheckCode(w, r, params)
}

func bindPath(r *http.Request, name string, dest *string) error {
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
}

func writeParamError(w http.ResponseWriter, name string, err error) {
	writeJSON(w, http.StatusBadRequest, Error{Error: "invalid_parameter", Message: fmt.Sprintf("%s: %v", name, err)})
}

// RegisterAPIV1 mounts the API on r under /api/v1. adminMW wraps the admin
// routes only; redemption stays public.
func RegisterAPIV1(r chi.Router, si ServerInterface, adminMW ...func(http.Handler) http.Handler) {
	sw := &serverWrapper{Handler: si}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(adminMW...)
			r.Post("/codes", si.CreateCode)
			r.Post("/codes/batch", si.CreateBatch)
			r.Get("/codes", sw.ListCodes)
			r.Delete("/codes", si.DeleteCodes)
			r.Get("/codes/stats", si.CodeStats)
			r.Delete("/codes/{id}", sw.DeleteCode)
			r.Get("/codes/{code}/qr", sw.GetCodeQR)
			r.Get("/codes/{code}/qr.png", sw.GetCodeQRImage)
		})
		r.Post("/redeem", si.Redeem)
		r.Get("/redeem/check", sw.CheckCode)
	})
}
