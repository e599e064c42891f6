package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/session"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

// Server exposes one editing session over HTTP.
type Server struct {
	sess *session.Session
	log  logger.Logger
}

// NewServer returns a Server that edits through sess.
func NewServer(sess *session.Session, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{sess: sess, log: log}
}

// Register mounts the container routes on e.
func (s *Server) Register(e *echo.Echo) {
	g := e.Group("/v1")

	g.GET("/header", s.handleHeader)
	g.GET("/file", s.handleFile)
	g.POST("/save", s.handleSave)
	g.GET("/verify", s.handleVerify)
	g.GET("/changes", s.handleChanges)

	g.GET("/records", s.handleListRecords)
	g.GET("/records/:offset", s.handleGetRecord)
	g.DELETE("/records/:offset", s.handleRemoveRecord)
	g.PUT("/records/:offset/bytes", s.handleWriteBytes)
	g.PUT("/records/:offset/fields/:name", s.handleSetField)
	g.POST("/records/:offset/resize", s.handleResize)

	g.GET("/labels", s.handleListLabels)
	g.GET("/labels/:name", s.handleGetLabel)
}

func (s *Server) handleHeader(c *echo.Context) error {
	var resp HeaderResp
	_ = s.sess.View(func(ct *dat.Container) error {
		resp = headerResp(ct)
		return nil
	})
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFile(c *echo.Context) error {
	var b []byte
	_ = s.sess.View(func(ct *dat.Container) error {
		b = ct.Bytes()
		return nil
	})
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, b)
}

func (s *Server) handleSave(c *echo.Context) error {
	if err := s.sess.Save(); err != nil {
		if errors.Is(err, session.ErrNoPath) {
			return writeBadRequest(c, err.Error())
		}
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"saved": s.sess.Path()})
}

func (s *Server) handleVerify(c *echo.Context) error {
	var issues []dat.Issue
	_ = s.sess.View(func(ct *dat.Container) error {
		issues = ct.Verify()
		return nil
	})
	if issues == nil {
		issues = []dat.Issue{}
	}
	return c.JSON(http.StatusOK, VerifyResp{OK: !dat.HasErrors(issues), Issues: issues})
}

func (s *Server) handleChanges(c *echo.Context) error {
	var changes []dat.Change
	_ = s.sess.View(func(ct *dat.Container) error {
		changes = ct.Changes()
		return nil
	})
	if changes == nil {
		changes = []dat.Change{}
	}
	return c.JSON(http.StatusOK, ChangesResp{Changes: changes, Dirty: s.sess.Dirty()})
}

func (s *Server) handleListRecords(c *echo.Context) error {
	typeFilter := strings.TrimSpace(c.QueryParam("type"))
	orphansOnly := c.QueryParam("orphans") == "true"

	out := []RecordSummary{}
	_ = s.sess.View(func(ct *dat.Container) error {
		for _, r := range ct.Records() {
			sum := recordSummary(r)
			if typeFilter != "" && sum.Type != typeFilter {
				continue
			}
			if orphansOnly && !sum.Orphan {
				continue
			}
			out = append(out, sum)
		}
		return nil
	})
	return c.JSON(http.StatusOK, map[string]any{"records": out})
}

func (s *Server) handleGetRecord(c *echo.Context) error {
	off, err := parseOffset(c.Param("offset"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	typeName := strings.TrimSpace(c.QueryParam("type"))

	var detail RecordDetail
	err = s.sess.View(func(ct *dat.Container) error {
		r, err := ct.Get(off)
		if err != nil {
			return err
		}
		if typeName != "" {
			typed, ok := ct.GetAs(off, typeName)
			if !ok {
				return &dat.RecordTypeMismatchError{Offset: off, Type: typeName}
			}
			r = typed
		}
		detail, err = recordDetail(r)
		return err
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) handleRemoveRecord(c *echo.Context) error {
	off, err := parseOffset(c.Param("offset"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	return s.edit(c, func(ct *dat.Container) error {
		return ct.RemoveRecord(off)
	})
}

func (s *Server) handleWriteBytes(c *echo.Context) error {
	off, err := parseOffset(c.Param("offset"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	req, err := decodeJSON[WriteBytesReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	b, err := hex.DecodeString(strings.ReplaceAll(req.Hex, " ", ""))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("hex: %v", err))
	}
	return s.edit(c, func(ct *dat.Container) error {
		r, err := ct.Get(off)
		if err != nil {
			return err
		}
		return r.WriteAt(req.At, b)
	})
}

func (s *Server) handleSetField(c *echo.Context) error {
	off, err := parseOffset(c.Param("offset"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	name := c.Param("name")
	req, err := decodeJSON[SetFieldReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Value == nil {
		return writeBadRequest(c, "value is required")
	}
	return s.edit(c, func(ct *dat.Container) error {
		r, err := ct.Get(off)
		if err != nil {
			return err
		}
		return r.SetField(name, *req.Value)
	})
}

func (s *Server) handleResize(c *echo.Context) error {
	off, err := parseOffset(c.Param("offset"))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	req, err := decodeJSON[ResizeReq](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.Delta == nil || *req.Delta == 0 {
		return writeBadRequest(c, "delta must be a non-zero integer")
	}
	return s.edit(c, func(ct *dat.Container) error {
		return ct.Resize(off, *req.Delta)
	})
}

// edit applies fn and responds with the new header and the changes it produced.
func (s *Server) edit(c *echo.Context, fn func(ct *dat.Container) error) error {
	var (
		resp    HeaderResp
		changes []dat.Change
	)
	err := s.sess.Update(func(ct *dat.Container) error {
		before := len(ct.Changes())
		if err := fn(ct); err != nil {
			return err
		}
		resp = headerResp(ct)
		changes = ct.Changes()[before:]
		return nil
	})
	if err != nil {
		s.log.Warn("edit rejected", "path", c.Request().URL.Path, "err", err)
		return writeEngineError(c, err)
	}
	if changes == nil {
		changes = []dat.Change{}
	}
	return c.JSON(http.StatusOK, map[string]any{"header": resp, "changes": changes})
}

func (s *Server) handleListLabels(c *echo.Context) error {
	out := []NodeResp{}
	kind := c.QueryParam("kind")
	_ = s.sess.View(func(ct *dat.Container) error {
		for _, n := range ct.Nodes() {
			if kind != "" && n.Kind.String() != kind {
				continue
			}
			out = append(out, nodeResp(n))
		}
		return nil
	})
	return c.JSON(http.StatusOK, map[string]any{"labels": out})
}

func (s *Server) handleGetLabel(c *echo.Context) error {
	name := c.Param("name")
	var (
		node   dat.Node
		detail RecordDetail
		found  bool
	)
	err := s.sess.View(func(ct *dat.Container) error {
		var r *dat.Record
		if node, found = ct.FindLabel(name); !found {
			return nil
		}
		if r, found = ct.GetByLabel(name); !found {
			return nil
		}
		var err error
		detail, err = recordDetail(r)
		return err
	})
	if err != nil {
		return writeEngineError(c, err)
	}
	if !found {
		return writeNotFound(c, fmt.Sprintf("label %q not found", name))
	}
	return c.JSON(http.StatusOK, map[string]any{"node": nodeResp(node), "record": detail})
}
