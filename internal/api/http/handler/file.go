package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arcmed/arcmed_backend/internal/service/document"
	"github.com/arcmed/arcmed_backend/internal/service/upload"
	"github.com/arcmed/arcmed_backend/pkg/objstore"
)

type FileHandler struct {
	uploads upload.Service
	docs    document.Service
}

func NewFileHandler(uploads upload.Service, docs document.Service) *FileHandler {
	return &FileHandler{uploads: uploads, docs: docs}
}

// POST /patients/:id/upload
// Multipart upload; the pipeline runs in the background and the draft row
// is returned immediately.
func (h *FileHandler) Upload(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	patientID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid patient id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field is required")
	}

	src, err := fh.Open()
	if err != nil {
		return badRequest(c, "unreadable upload")
	}
	defer src.Close()

	file, err := h.uploads.Upload(c.Context(), caller, patientID, fh.Filename, src)
	if err != nil {
		return fail(c, err)
	}

	return created(c, file)
}

// GET /files/:id/status
func (h *FileHandler) Status(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	status, err := h.uploads.Status(c.Context(), caller, fileID)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, status)
}

// POST /files/:id/cancel
func (h *FileHandler) Cancel(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.uploads.Cancel(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /files/:id/confirm
func (h *FileHandler) Confirm(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	file, err := h.docs.Confirm(c.Context(), caller, fileID)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, file)
}

// DELETE /files/:id/draft
func (h *FileHandler) DiscardDraft(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.docs.DiscardDraft(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// GET /files/:id/serve
// Streams the decrypted file body. Cold objects answer 409 with a hint
// to request a restore first.
func (h *FileHandler) Serve(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	result, err := h.docs.Serve(c.Context(), caller, fileID)
	if err != nil {
		return fail(c, err)
	}

	c.Set(fiber.HeaderContentType, result.ContentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", result.FileName))
	return c.Send(result.Content)
}

// POST /files/:id/restore?tier=standard|expedited|bulk
func (h *FileHandler) Restore(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	tier, err := parseTier(c.Query("tier"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.docs.Restore(c.Context(), caller, fileID, tier); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "restore initiated; you will be emailed when the file is ready"},
	})
}

// POST /files/:id/request-download
func (h *FileHandler) RequestDownload(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.docs.RequestDownload(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "download request sent"},
	})
}

// DELETE /files/:id
// Immediate deletion, restricted to roles holding delete_immediate.
func (h *FileHandler) Delete(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.docs.Delete(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /files/:id/request-deletion
func (h *FileHandler) RequestDeletion(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.docs.RequestDeletion(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /files/:id/approve-deletion?intermediate=true
func (h *FileHandler) ApproveDeletion(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	intermediate := strings.EqualFold(c.Query("intermediate"), "true")
	if err := h.docs.ApproveDeletion(c.Context(), caller, fileID, intermediate); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

// POST /files/:id/reject-deletion
func (h *FileHandler) RejectDeletion(c fiber.Ctx) error {
	caller, valid := callerFromFiber(c)
	if !valid {
		return unauthorized(c)
	}

	fileID, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.docs.RejectDeletion(c.Context(), caller, fileID); err != nil {
		return fail(c, err)
	}

	return noContent(c)
}

func parseTier(q string) (objstore.RestoreTier, error) {
	switch strings.ToLower(q) {
	case "", "standard":
		return objstore.TierStandard, nil
	case "expedited":
		return objstore.TierExpedited, nil
	case "bulk":
		return objstore.TierBulk, nil
	}
	return "", fmt.Errorf("unknown restore tier %q", q)
}
