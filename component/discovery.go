package component

// PortInfo describes one declared port. Array ports are reported once with
// their size.
type PortInfo struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Types       []string  `json:"types,omitempty"`
	Optional    bool      `json:"optional"`
	Size        int       `json:"size,omitempty"`
	Capacity    int       `json:"capacity,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Info holds metadata about an available component type
type Info struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"` // "input", "processor", "output", "graph"
	Description string     `json:"description"`
	Version     string     `json:"version"`
	Inputs      []PortInfo `json:"inputs,omitempty"`
	Outputs     []PortInfo `json:"outputs,omitempty"`
}

// DescribePorts reports the declared ports of an initialized node
func DescribePorts(n Node) (inputs, outputs []PortInfo) {
	b := n.Core()
	for _, p := range b.inputs {
		if p.index > 0 {
			continue
		}
		info := portInfo(&p.portCore, DirectionInput)
		info.Capacity = p.spec.capacity
		if p.index == 0 {
			info.Size = b.inArrays[p.name].Len()
		}
		inputs = append(inputs, info)
	}
	for _, p := range b.outputs {
		if p.index > 0 {
			continue
		}
		info := portInfo(&p.portCore, DirectionOutput)
		if p.index == 0 {
			info.Size = b.outArrays[p.name].Len()
		}
		outputs = append(outputs, info)
	}
	return inputs, outputs
}

func portInfo(p *portCore, dir Direction) PortInfo {
	var types []string
	if len(p.spec.types) > 0 {
		types = typeNames(p.spec.types)
	}
	return PortInfo{
		Name:        p.name,
		Direction:   dir,
		Types:       types,
		Optional:    p.spec.optional,
		Description: p.spec.description,
	}
}
