package main

import "fmt"

// TriggerPlan is the resolved input set for one workflow node: the
// prompt text plus the control and reference image ids in edge order.
type TriggerPlan struct {
	Prompt       string
	Params       GenerationParams
	ControlIDs   []string
	ReferenceIDs []string
}

// PlanTrigger walks the incoming edges of a workflow node and
// partitions its inputs by handle. A missing prompt falls back to the
// placeholder text rather than failing the trigger.
func PlanTrigger(g *GraphStore, workflowID string) (*TriggerPlan, error) {
	wf, ok := g.Node(workflowID)
	if !ok {
		return nil, fmt.Errorf("workflow node not found")
	}
	if wf.Kind != NodeWorkflow {
		return nil, fmt.Errorf("node %s is not a workflow", shortID(workflowID))
	}

	plan := &TriggerPlan{Prompt: promptPlaceholder, Params: wf.Params}
	for _, e := range g.IncomingEdges(workflowID) {
		src, ok := g.Node(e.From)
		if !ok {
			continue
		}
		switch e.ToHandle {
		case HandlePrompt:
			if src.Text != "" {
				plan.Prompt = src.Text
			}
		case HandleControl:
			if src.ImageID != "" {
				plan.ControlIDs = append(plan.ControlIDs, src.ImageID)
			}
		case HandleReference:
			if src.ImageID != "" {
				plan.ReferenceIDs = append(plan.ReferenceIDs, src.ImageID)
			}
		}
	}
	return plan, nil
}

// InputRefs returns the plan's images as generation input references,
// control first, preserving edge order within each role.
func (p *TriggerPlan) InputRefs() []ImageRef {
	refs := make([]ImageRef, 0, len(p.ControlIDs)+len(p.ReferenceIDs))
	for _, id := range p.ControlIDs {
		refs = append(refs, ImageRef{ID: id, Role: "control"})
	}
	for _, id := range p.ReferenceIDs {
		refs = append(refs, ImageRef{ID: id, Role: "reference"})
	}
	return refs
}

// BuildRequest loads the image payloads and packages the request for
// the generation service. An image that no longer resolves is skipped;
// stale references degrade, they do not abort the trigger.
func (p *TriggerPlan) BuildRequest(images ImageStore) *GenerateRequest {
	req := &GenerateRequest{Prompt: p.Prompt, Params: p.Params}
	for _, id := range p.ControlIDs {
		if data, err := images.Load(id); err == nil {
			req.ControlImages = append(req.ControlImages, data)
		}
	}
	for _, id := range p.ReferenceIDs {
		if data, err := images.Load(id); err == nil {
			req.ReferenceImages = append(req.ReferenceImages, data)
		}
	}
	return req
}
