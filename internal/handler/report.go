package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/gradereport/internal/arrange"
	"github.com/pavelanni/gradereport/internal/cache"
	"github.com/pavelanni/gradereport/internal/i18n"
	"github.com/pavelanni/gradereport/internal/model"
	"github.com/pavelanni/gradereport/internal/observability"
	"github.com/pavelanni/gradereport/internal/report"
)

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, err := parseReportRequest(model.Format(chi.URLParam(r, "format")), r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Lang == "" {
		req.Lang = i18n.Match(r.Header.Get("Accept-Language"))
	}
	if req.Lang == "" {
		req.Lang = h.config.Lang
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}
	if err := arrange.ValidateAxes(req.Primary, req.Secondary); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	format := string(req.Format)
	ctx := i18n.WithLang(r.Context(), req.Lang)

	info, err := h.store.GetExportInfo(ctx)
	if err != nil {
		slog.Error("failed to read dataset info", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	key := cache.Key(info.Version, req)
	body, err := h.cache.Get(ctx, key)
	switch {
	case err == nil:
		observability.CacheLookups().WithLabelValues("hit").Inc()
		observability.Exports().WithLabelValues(format, "cached").Inc()
		h.writeReport(w, req, body)
		return
	case errors.Is(err, cache.ErrMiss):
		observability.CacheLookups().WithLabelValues("miss").Inc()
	default:
		observability.CacheLookups().WithLabelValues("error").Inc()
		slog.Warn("cache lookup failed, rendering", "error", err)
	}

	ds, err := h.store.LoadDataset(ctx)
	if err != nil {
		observability.Exports().WithLabelValues(format, "error").Inc()
		slog.Error("failed to load dataset", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	doc, err := report.Generate(ctx, ds, req, info, h.now())
	if err != nil {
		observability.Exports().WithLabelValues(format, "error").Inc()
		if errors.Is(err, arrange.ErrInvalidAxes) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("failed to arrange report", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(ctx, &buf, doc, req.Format); err != nil {
		observability.Exports().WithLabelValues(format, "error").Inc()
		slog.Error("render error", "format", format, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	body = buf.Bytes()

	if err := h.cache.Set(ctx, key, body, h.config.CacheTTL); err != nil {
		slog.Warn("failed to cache report", "error", err)
	}
	observability.Exports().WithLabelValues(format, "ok").Inc()
	observability.ExportDuration().WithLabelValues(format).Observe(time.Since(start).Seconds())
	slog.Info("report exported",
		"format", format,
		"primary", req.Primary,
		"secondary", req.Secondary,
		"bytes", len(body),
	)
	h.writeReport(w, req, body)
}

func (h *Handler) writeReport(w http.ResponseWriter, req model.ReportRequest, body []byte) {
	disposition := "attachment"
	if req.Format == model.FormatHTML {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", report.ContentType(req.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, report.Filename(req)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

// parseReportRequest reads export selections from query parameters.
// activity may repeat or hold a comma-separated list.
func parseReportRequest(format model.Format, q url.Values) (model.ReportRequest, error) {
	req := model.ReportRequest{
		Format:    format,
		Primary:   model.Axis(q.Get("primary")),
		Secondary: model.Axis(q.Get("secondary")),
		Lang:      q.Get("lang"),
	}

	var err error
	if req.IncludeAll, err = parseBool(q, "include_all"); err != nil {
		return req, err
	}
	if req.DecimalComma, err = parseBool(q, "decimal_comma"); err != nil {
		return req, err
	}

	for _, v := range q["activity"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return req, fmt.Errorf("invalid activity id %q", part)
			}
			req.ActivityIDs = append(req.ActivityIDs, id)
		}
	}

	if v := q.Get("class"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("invalid class id %q", v)
		}
		req.ClassID = &id
	}
	return req, nil
}

func parseBool(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", name, v)
	}
	return b, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("invalid %s: %q", strings.ToLower(fe.Field()), fmt.Sprint(fe.Value())))
	}
	return strings.Join(msgs, "; ")
}
