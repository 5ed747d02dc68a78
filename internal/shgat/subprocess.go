package shgat

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// maxFrameBytes bounds a single framed message to guard the host/worker
// boundary against a corrupt or malicious length prefix (spec 5/6.3).
const maxFrameBytes = 256 << 20 // 256 MiB

// WriteFrame writes a length-prefixed message: a 4-byte big-endian length
// followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed message written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameBytes {
		return nil, fmt.Errorf("shgat: frame of %d bytes exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// MemberSnapshot is the wire form of Member.
type MemberSnapshot struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ToolSnapshot is the wire form of Tool.
type ToolSnapshot struct {
	ID        string    `json:"id"`
	Embedding []float64 `json:"embedding"`
}

// CapabilitySnapshot is the wire form of Capability (Level is recomputed by
// the receiver, never trusted over the wire).
type CapabilitySnapshot struct {
	ID          string           `json:"id"`
	Intrinsic   []float64        `json:"intrinsic"`
	Members     []MemberSnapshot `json:"members"`
	SuccessRate float64          `json:"success_rate"`
}

// GraphSnapshot is the wire form of a graphStore sufficient to rebuild it
// (hierarchy and incidence are always recomputed, never transmitted).
type GraphSnapshot struct {
	Tools        []ToolSnapshot       `json:"tools"`
	Capabilities []CapabilitySnapshot `json:"capabilities"`
}

// snapshotGraph captures the current graph for hand-off to a subprocess
// worker (spec 6.3).
func snapshotGraph(g *graphStore) GraphSnapshot {
	snap := GraphSnapshot{
		Tools:        make([]ToolSnapshot, len(g.tools)),
		Capabilities: make([]CapabilitySnapshot, len(g.capabilities)),
	}
	for i, t := range g.tools {
		snap.Tools[i] = ToolSnapshot{ID: t.ID, Embedding: t.Embedding}
	}
	for i, c := range g.capabilities {
		members := make([]MemberSnapshot, len(c.Members))
		for j, m := range c.Members {
			members[j] = MemberSnapshot{Kind: m.Kind.String(), ID: m.ID}
		}
		snap.Capabilities[i] = CapabilitySnapshot{
			ID:          c.ID,
			Intrinsic:   c.Intrinsic,
			Members:     members,
			SuccessRate: c.SuccessRate,
		}
	}
	return snap
}

// buildGraphFromSnapshot reconstructs a graphStore from its wire form,
// rebuilding the hierarchy and incidence from scratch (never trusting a
// transmitted level).
func buildGraphFromSnapshot(snap GraphSnapshot) (*graphStore, error) {
	g := newGraphStore()
	for _, t := range snap.Tools {
		g.insertTool(t.ID, t.Embedding)
	}
	for _, c := range snap.Capabilities {
		members := make([]Member, len(c.Members))
		for i, m := range c.Members {
			kind := MemberTool
			if m.Kind == MemberCapability.String() {
				kind = MemberCapability
			}
			members[i] = Member{Kind: kind, ID: m.ID}
		}
		g.insertCapability(c.ID, c.Intrinsic, members, c.SuccessRate)
	}
	if err := g.rebuildHierarchy(); err != nil {
		return nil, err
	}
	return g, nil
}

// BatchTrainRequest is one unit of work handed to a subprocess worker: the
// graph it should train against, the current parameters, and a batch of
// examples to train sequentially (spec 6.3).
type BatchTrainRequest struct {
	Graph        GraphSnapshot     `json:"graph"`
	Params       []byte            `json:"params"`
	Examples     []TrainingExample `json:"examples"`
	LearningRate float64           `json:"learning_rate"`
	L2Lambda     float64           `json:"l2_lambda"`
}

// BatchTrainResponse is a worker's reply: the updated parameters after
// training on every example that did not abort, plus per-example outcomes
// for the host to log and to seed the replay buffer's priorities.
type BatchTrainResponse struct {
	Params    []byte    `json:"params"`
	Losses    []float64 `json:"losses"`
	Scores    []float64 `json:"scores"`
	Skipped   []string  `json:"skipped"`
	Error     string    `json:"error,omitempty"`
}

// RunBatchTrainWorker services exactly one BatchTrainRequest read as a
// single frame from r, and writes exactly one BatchTrainResponse frame to
// w. It never mutates shared engine state directly: the host is solely
// responsible for the atomic parameter swap after receiving the response
// (spec 6.3).
func RunBatchTrainWorker(r io.Reader, w io.Writer) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	var req BatchTrainRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return writeErrorResponse(w, err)
	}

	g, err := buildGraphFromSnapshot(req.Graph)
	if err != nil {
		return writeErrorResponse(w, err)
	}
	params, err := importParams(req.Params)
	if err != nil {
		return writeErrorResponse(w, err)
	}

	resp := BatchTrainResponse{}
	for _, ex := range req.Examples {
		if _, ok := g.capability(ex.CapabilityID); !ok {
			resp.Skipped = append(resp.Skipped, ex.ID)
			continue
		}
		grad, loss, score, err := trainStep(params, g, ex)
		if err != nil {
			resp.Skipped = append(resp.Skipped, ex.ID)
			continue
		}
		if err := grad.allFinite(); err != nil {
			resp.Skipped = append(resp.Skipped, ex.ID)
			continue
		}
		applyGradients(params, grad, req.LearningRate, req.L2Lambda, grad.batch)
		resp.Losses = append(resp.Losses, loss)
		resp.Scores = append(resp.Scores, score)
	}

	resp.Params = exportParams(params)
	out, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, out)
}

func writeErrorResponse(w io.Writer, cause error) error {
	resp := BatchTrainResponse{Error: cause.Error()}
	out, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteFrame(w, out)
}
