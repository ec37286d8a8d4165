package payload

import (
	"encoding/json"
	"strings"
)

// Payload is one dance as written by the FDML export-json command.
type Payload struct {
	File     Text            `json:"file"`
	Meta     Meta            `json:"meta"`
	Figures  List[Figure]    `json:"figures"`
	Topology Topology        `json:"topology"`
	Raw      json.RawMessage `json:"-"`
}

type Meta struct {
	Version       Text `json:"version"`
	Title         Text `json:"title"`
	Meter         Text `json:"meter"`
	TempoBpm      Text `json:"tempoBpm"`
	OriginCountry Text `json:"originCountry"`
	TypeGenre     Text `json:"typeGenre"`
	FormationText Text `json:"formationText"`
	FormationKind Text `json:"formationKind"`
}

type Figure struct {
	ID    Text       `json:"id"`
	Name  Text       `json:"name"`
	Steps List[Step] `json:"steps"`
}

// Label returns the figure name, falling back to its id.
func (f Figure) Label() string {
	if f.Name != "" {
		return f.Name.String()
	}
	return f.ID.String()
}

type Step struct {
	Who        Text            `json:"who"`
	Action     Text            `json:"action"`
	Beats      Text            `json:"beats"`
	Count      Text            `json:"count"`
	Direction  Text            `json:"direction"`
	Facing     Text            `json:"facing"`
	Primitives List[Primitive] `json:"primitives"`
}

type Primitive struct {
	Kind          Text `json:"kind"`
	Who           Text `json:"who"`
	Frame         Text `json:"frame"`
	Dir           Text `json:"dir"`
	A             Text `json:"a"`
	B             Text `json:"b"`
	Delta         Text `json:"delta"`
	PreserveOrder Text `json:"preserveOrder"`
}

type Topology struct {
	Circle   CircleTopology   `json:"circle"`
	Line     LineTopology     `json:"line"`
	TwoLines TwoLinesTopology `json:"twoLines"`
}

type CircleTopology struct {
	Orders List[Order] `json:"orders"`
}

type LineTopology struct {
	Lines List[LineDef] `json:"lines"`
}

type TwoLinesTopology struct {
	Facing Facing        `json:"facing"`
	Lines  List[LineDef] `json:"lines"`
}

type Facing struct {
	A Text `json:"a"`
	B Text `json:"b"`
}

type LineDef struct {
	ID     Text        `json:"id"`
	Role   Text        `json:"role"`
	Orders List[Order] `json:"orders"`
}

// Order is one slot ordering, tagged with the phase it applies to.
type Order struct {
	Role  Text       `json:"role"`
	Phase Text       `json:"phase"`
	Slots List[Text] `json:"slots"`
}

// InitialSlots picks the first ordering tagged "initial", or failing that
// the first non-empty ordering. Empty slot names are dropped.
func InitialSlots(orders []Order) []string {
	for _, o := range orders {
		if strings.EqualFold(o.Phase.String(), "initial") && len(o.Slots) > 0 {
			return slotNames(o.Slots)
		}
	}
	for _, o := range orders {
		if len(o.Slots) > 0 {
			return slotNames(o.Slots)
		}
	}
	return []string{}
}

func slotNames(slots []Text) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s != "" {
			out = append(out, s.String())
		}
	}
	return out
}
