package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/originform/publishctl/pkg/apierr"
	"github.com/originform/publishctl/pkg/publish"
	"github.com/originform/publishctl/pkg/storage"
)

const maxMultipartMemory = 32 << 20 // 32 MiB buffered in memory, rest spooled to disk

func writeJob(w http.ResponseWriter, status int, job *storage.PublishJob, extra map[string]interface{}) {
	body := map[string]interface{}{"job": publish.NewView(job)}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierr.Write(w, apierr.Validation("bad_multipart", err.Error()), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apierr.Write(w, apierr.Validation("file_empty", "multipart field \"file\" is required"), nil)
		return
	}
	defer file.Close()
	buf := make([]byte, header.Size)
	if _, err := file.Read(buf); err != nil {
		apierr.Write(w, apierr.Internal("read_failed", err.Error()), nil)
		return
	}
	contentType := r.FormValue("contentType")
	if contentType == "" {
		contentType = header.Header.Get("Content-Type")
	}
	in := publish.StartInput{
		UserAddress:    h.userAddress(r),
		FileName:       header.Filename,
		ContentType:    contentType,
		File:           buf,
		PublishType:    r.FormValue("publishType"),
		AudioSha256:    r.FormValue("audioSha256"),
		Fingerprint:    r.FormValue("fingerprint"),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if v := r.FormValue("durationS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			in.DurationS = &d
		}
	}
	job, err := h.publish.Start(r.Context(), in)
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

func (h *handlers) stageArtifacts(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierr.Write(w, apierr.Validation("bad_multipart", err.Error()), nil)
		return
	}
	in := publish.ArtifactsInput{LyricsText: r.FormValue("lyricsText")}
	if file, header, err := r.FormFile("cover"); err == nil {
		defer file.Close()
		buf := make([]byte, header.Size)
		if _, rerr := file.Read(buf); rerr == nil {
			in.Cover = buf
			in.CoverContentType = r.FormValue("coverContentType")
			if in.CoverContentType == "" {
				in.CoverContentType = header.Header.Get("Content-Type")
			}
		}
	}
	job, err := h.publish.StageArtifacts(r.Context(), jobID, h.userAddress(r), in)
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

type preflightBody struct {
	JobID           string   `json:"jobId"`
	PublishType     string   `json:"publishType"`
	Fingerprint     string   `json:"fingerprint"`
	DurationS       *int     `json:"durationS"`
	ParentIPIDs     []string `json:"parentIpIds"`
	LicenseTermsIDs []string `json:"licenseTermsIds"`
}

func (h *handlers) preflight(w http.ResponseWriter, r *http.Request) {
	var body preflightBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	result, err := h.publish.Preflight(r.Context(), body.JobID, h.userAddress(r), publish.PreflightInput{
		PublishType:     body.PublishType,
		Fingerprint:     body.Fingerprint,
		DurationS:       body.DurationS,
		ParentIPIDs:     body.ParentIPIDs,
		LicenseTermsIDs: body.LicenseTermsIDs,
	})
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, result.Job, map[string]interface{}{
		"hashDuplicate":       result.HashDuplicate,
		"acoustId":            result.AcoustID,
		"duplicateCandidates": result.DuplicateCandidates,
	})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job, err := h.publish.Get(r.Context(), jobID, h.userAddress(r))
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

func (h *handlers) anchor(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	job, err := h.publish.Anchor(r.Context(), jobID, h.userAddress(r))
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

type metadataBody struct {
	IPMetadataJSON  json.RawMessage `json:"ipMetadataJson"`
	NFTMetadataJSON json.RawMessage `json:"nftMetadataJson"`
}

func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	var body metadataBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	job, err := h.publish.Metadata(r.Context(), jobID, h.userAddress(r), publish.MetadataInput{
		IPMetadataJSON:  body.IPMetadataJSON,
		NFTMetadataJSON: body.NFTMetadataJSON,
	})
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

type registerBody struct {
	Recipient       string   `json:"recipient"`
	IPMetadataURI   string   `json:"ipMetadataUri"`
	IPMetadataHash  string   `json:"ipMetadataHash"`
	NFTMetadataURI  string   `json:"nftMetadataUri"`
	NFTMetadataHash string   `json:"nftMetadataHash"`
	LicenseTermsID  string   `json:"licenseTermsId"`
	ParentIPIDs     []string `json:"parentIpIds"`
	LicenseTermsIDs []string `json:"licenseTermsIds"`
	LicenseTemplate string   `json:"licenseTemplate"`
	RoyaltyContext  string   `json:"royaltyContext"`
	MaxMintingFee   string   `json:"maxMintingFee"`
	MaxRTS          uint32   `json:"maxRts"`
	MaxRevenueShare uint32   `json:"maxRevenueShare"`
	AllowDuplicates bool     `json:"allowDuplicates"`
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	job, err := h.publish.Register(r.Context(), jobID, h.userAddress(r), publish.RegisterInput{
		Recipient:       body.Recipient,
		IPMetadataURI:   body.IPMetadataURI,
		IPMetadataHash:  body.IPMetadataHash,
		NFTMetadataURI:  body.NFTMetadataURI,
		NFTMetadataHash: body.NFTMetadataHash,
		LicenseTermsID:  body.LicenseTermsID,
		ParentIPIDs:     body.ParentIPIDs,
		LicenseTermsIDs: body.LicenseTermsIDs,
		LicenseTemplate: body.LicenseTemplate,
		RoyaltyContext:  body.RoyaltyContext,
		MaxMintingFee:   body.MaxMintingFee,
		MaxRTS:          body.MaxRTS,
		MaxRevenueShare: body.MaxRevenueShare,
		AllowDuplicates: body.AllowDuplicates,
	})
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, job, nil)
}

type finalizeBody struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	DurationS    *int   `json:"durationS"`
	PieceCID     string `json:"pieceCid"`
	DatasetOwner string `json:"datasetOwner"`
	Algo         *int   `json:"algo"`
}

func (h *handlers) finalize(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	var body finalizeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierr.Write(w, apierr.Validation("bad_json", err.Error()), nil)
		return
	}
	result, err := h.publish.Finalize(r.Context(), jobID, h.userAddress(r), publish.FinalizeInput{
		Title:        body.Title,
		Artist:       body.Artist,
		Album:        body.Album,
		DurationS:    body.DurationS,
		PieceCID:     body.PieceCID,
		DatasetOwner: body.DatasetOwner,
		Algo:         body.Algo,
	})
	if err != nil {
		apierr.Write(w, err, nil)
		return
	}
	writeJob(w, http.StatusOK, result.Job, map[string]interface{}{
		"trackRegistered":   result.TrackRegistered,
		"contentRegistered": result.ContentRegistered,
	})
}

