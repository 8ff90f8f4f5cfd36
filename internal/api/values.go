package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/vk/framegraph/internal/session"
	"github.com/vk/framegraph/internal/value"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

type manualValueRequest struct {
	Value json.RawMessage `json:"value"`
}

// setManualValue accepts either {"value": ...} decoded as the socket kind,
// or an encoded image body for image inputs.
func (s *Server) setManualValue(c fiber.Ctx) error {
	id := c.Params("id")
	idx, err := socketIndex(c)
	if err != nil {
		return err
	}

	var img image.Image
	var raw json.RawMessage
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), "image/") {
		img, _, err = image.Decode(bytes.NewReader(c.Body()))
		if err != nil {
			return badRequest("decoding image: %v", err)
		}
	} else {
		var req manualValueRequest
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest("invalid body: %v", err)
		}
		if len(req.Value) == 0 {
			return badRequest("value is required")
		}
		raw = req.Value
	}

	err = s.do(c, func(env *session.Env) error {
		n, err := lookup(env, id)
		if err != nil {
			return err
		}
		in, err := n.Input(idx)
		if err != nil {
			return err
		}
		var v value.Value
		if img != nil {
			v = value.FromImage(img)
		} else {
			v, err = decodeValue(in.Kind(), raw)
			if err != nil {
				return err
			}
		}
		return env.Graph.SetManualValue(id, idx, v)
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func decodeValue(k value.Kind, raw json.RawMessage) (value.Value, error) {
	if !k.IsImage() && k != value.KindContours {
		decoded, err := ctyjson.Unmarshal(raw, k.CtyType())
		if err != nil {
			return value.Value{}, badRequest("value is not a %s: %v", k, err)
		}
		return value.FromCty(k, decoded)
	}
	return value.Value{}, fmt.Errorf("%w: %s inputs take an encoded image body", value.ErrNotSerializable, k)
}

func (s *Server) clearManualValue(c fiber.Ctx) error {
	id := c.Params("id")
	idx, err := socketIndex(c)
	if err != nil {
		return err
	}
	err = s.do(c, func(env *session.Env) error {
		return env.Graph.ClearManualValue(id, idx)
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type outputResponse struct {
	Kind   string          `json:"kind"`
	State  string          `json:"state"`
	Error  string          `json:"error,omitempty"`
	Value  json.RawMessage `json:"value"`
	Width  int             `json:"width,omitempty"`
	Height int             `json:"height,omitempty"`
}

// pullOutput evaluates one output. Present images are sent as PNG unless
// ?format=json asks for a summary.
func (s *Server) pullOutput(c fiber.Ctx) error {
	id := c.Params("id")
	idx, err := socketIndex(c)
	if err != nil {
		return err
	}
	asJSON := c.Query("format") == "json"

	var (
		resp outputResponse
		img  image.Image
	)
	err = s.do(c, func(env *session.Env) error {
		v, err := env.Graph.EvaluateOutput(id, idx)
		if err != nil {
			return err
		}
		n, _ := env.Graph.Node(id)
		out, _ := n.Output(idx)
		resp = outputResponse{Kind: out.Kind().String(), State: n.State().String(), Value: json.RawMessage("null")}
		if nerr := n.Err(); nerr != nil {
			resp.Error = nerr.Error()
		}
		if v.IsNull() {
			return nil
		}
		switch {
		case v.AsImage() != nil:
			img = v.AsImage()
			b := img.Bounds()
			resp.Width, resp.Height = b.Dx(), b.Dy()
		case v.Kind() == value.KindContours:
			list, _ := v.AsContours()
			encoded, err := json.Marshal(list)
			if err != nil {
				return err
			}
			resp.Value = encoded
		default:
			encoded, err := ctyjson.Marshal(v.Cty(), v.Kind().CtyType())
			if err != nil {
				return err
			}
			resp.Value = encoded
		}
		return nil
	})
	if err != nil {
		return err
	}

	if img == nil || asJSON {
		return c.JSON(resp)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set("X-Node-State", resp.State)
	return c.Send(buf.Bytes())
}
