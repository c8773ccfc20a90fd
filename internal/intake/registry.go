package intake

import (
	"errors"
	"fmt"
	"sort"
)

// Registry is the immutable step table.
type Registry struct {
	steps   map[Step]StepDef
	entries map[Flow]Step
}

// NewRegistry validates defs and builds a registry. entries maps every flow to
// its first step. The step graph must be acyclic, every step must be reachable
// from its flow's entry, and every path must end in StepSubmit.
func NewRegistry(entries map[Flow]Step, defs ...StepDef) (*Registry, error) {
	r := &Registry{
		steps:   make(map[Step]StepDef, len(defs)),
		entries: make(map[Flow]Step, len(entries)),
	}
	for _, def := range defs {
		if def.ID == StepNone || def.ID == StepSubmit {
			return nil, fmt.Errorf("intake: reserved step id %q", def.ID)
		}
		if _, dup := r.steps[def.ID]; dup {
			return nil, fmt.Errorf("intake: duplicate step %q", def.ID)
		}
		if err := checkDef(def); err != nil {
			return nil, err
		}
		r.steps[def.ID] = def
	}
	for flow, first := range entries {
		def, ok := r.steps[first]
		if !ok {
			return nil, fmt.Errorf("intake: flow %q enters unknown step %q", flow, first)
		}
		if def.Flow != flow {
			return nil, fmt.Errorf("intake: flow %q enters step %q of flow %q", flow, first, def.Flow)
		}
		r.entries[flow] = first
	}
	if err := r.checkGraph(); err != nil {
		return nil, err
	}
	return r, nil
}

func checkDef(def StepDef) error {
	switch def.Input {
	case InputLines:
		if def.Lines < 1 {
			return fmt.Errorf("intake: step %q needs at least one line", def.ID)
		}
		if def.WholeText && def.Lines != 1 {
			return fmt.Errorf("intake: whole-text step %q must take one line", def.ID)
		}
		if def.Assign == nil {
			return fmt.Errorf("intake: step %q has no assign", def.ID)
		}
	case InputChoice:
		if len(def.Options) == 0 {
			return fmt.Errorf("intake: choice step %q has no options", def.ID)
		}
		if def.Assign == nil {
			return fmt.Errorf("intake: step %q has no assign", def.ID)
		}
		for token := range def.NextByChoice {
			if !def.HasOption(token) {
				return fmt.Errorf("intake: step %q branches on undeclared option %q", def.ID, token)
			}
		}
		if def.Next == StepNone {
			for _, opt := range def.Options {
				if _, ok := def.NextByChoice[opt.Token]; !ok {
					return fmt.Errorf("intake: option %q of step %q has no successor", opt.Token, def.ID)
				}
			}
		}
	case InputMedia:
	default:
		return fmt.Errorf("intake: step %q has unknown input kind", def.ID)
	}
	if def.Next == StepNone && len(def.NextByChoice) == 0 {
		return fmt.Errorf("intake: step %q has no successor", def.ID)
	}
	return nil
}

var errCycle = errors.New("intake: step graph has a cycle")

func (r *Registry) checkGraph() error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[Step]int, len(r.steps))
	var visit func(id Step, flow Flow) error
	visit = func(id Step, flow Flow) error {
		if id == StepSubmit {
			return nil
		}
		def, ok := r.steps[id]
		if !ok {
			return fmt.Errorf("intake: transition to unknown step %q", id)
		}
		if def.Flow != flow {
			return fmt.Errorf("intake: step %q is shared between flows %q and %q", id, def.Flow, flow)
		}
		switch marks[id] {
		case visiting:
			return fmt.Errorf("%w at %q", errCycle, id)
		case done:
			return nil
		}
		marks[id] = visiting
		for _, next := range def.successors() {
			if next == StepNone {
				continue
			}
			if err := visit(next, flow); err != nil {
				return err
			}
		}
		marks[id] = done
		return nil
	}
	for flow, first := range r.entries {
		if err := visit(first, flow); err != nil {
			return err
		}
	}
	for id := range r.steps {
		if marks[id] != done {
			return fmt.Errorf("intake: step %q is unreachable", id)
		}
	}
	return nil
}

// Lookup returns the definition of step.
func (r *Registry) Lookup(step Step) (StepDef, bool) {
	def, ok := r.steps[step]
	return def, ok
}

// Entry returns the first step of flow.
func (r *Registry) Entry(flow Flow) (StepDef, bool) {
	first, ok := r.entries[flow]
	if !ok {
		return StepDef{}, false
	}
	return r.Lookup(first)
}

// Flows lists the registered flows in name order.
func (r *Registry) Flows() []Flow {
	out := make([]Flow, 0, len(r.entries))
	for flow := range r.entries {
		out = append(out, flow)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Steps lists all step ids in name order.
func (r *Registry) Steps() []Step {
	out := make([]Step, 0, len(r.steps))
	for id := range r.steps {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OptionTokens returns every choice token declared by any step, deduplicated.
func (r *Registry) OptionTokens() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range r.Steps() {
		for _, opt := range r.steps[id].Options {
			if _, ok := seen[opt.Token]; ok {
				continue
			}
			seen[opt.Token] = struct{}{}
			out = append(out, opt.Token)
		}
	}
	return out
}

// DefaultRegistry returns the building and parking flows.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(map[Flow]Step{
		FlowBuilding: StepBuildingDetails,
		FlowParking:  StepParkingUserInfo,
	}, defaultSteps()...)
	if err != nil {
		panic(err)
	}
	return reg
}

func defaultSteps() []StepDef {
	return []StepDef{
		{
			ID:        StepBuildingDetails,
			Flow:      FlowBuilding,
			Prompt:    "Введіть одним повідомленням:\nІмʼя та прізвище\nТелефон\nПідприємство / ФОП\nНомер приміщення",
			Input:     InputLines,
			Lines:     4,
			Malformed: "❌ Заповніть всі 4 рядки",
			Next:      StepBuildingProblemType,
			Assign: func(a *Answers, v []string) {
				b := a.building()
				b.Name, b.Phone, b.Company, b.Room = v[0], v[1], v[2], v[3]
			},
		},
		{
			ID:     StepBuildingProblemType,
			Flow:   FlowBuilding,
			Prompt: "Оберіть тип проблеми:",
			Input:  InputChoice,
			Options: []Option{
				{Token: "plumbing", Label: "🚰 Сантехніка"},
				{Token: "electricity", Label: "⚡ Електрика"},
				{Token: "climate", Label: "❄️ Кондиціонування/опалення"},
				{Token: "walls", Label: "🧱 Стіни/підлога/стеля"},
				{Token: "other", Label: "❓ Інше"},
			},
			Next: StepBuildingDescription,
			Assign: func(a *Answers, v []string) {
				a.building().Problem = v[0]
			},
		},
		{
			ID:        StepBuildingDescription,
			Flow:      FlowBuilding,
			Prompt:    "Опишіть проблему:",
			Input:     InputLines,
			Lines:     1,
			WholeText: true,
			Malformed: "❌ Опишіть проблему текстом",
			Next:      StepBuildingMedia,
			Assign: func(a *Answers, v []string) {
				a.building().Description = v[0]
			},
		},
		{
			ID:     StepBuildingMedia,
			Flow:   FlowBuilding,
			Prompt: "Додайте фото / відео / Excel / Word / PDF (за бажанням):",
			Input:  InputMedia,
			Next:   StepSubmit,
		},
		{
			ID:        StepParkingUserInfo,
			Flow:      FlowParking,
			Prompt:    "Вкажіть одним повідомленням:\nІмʼя та прізвище\nКонтакти\nПідприємство",
			Input:     InputLines,
			Lines:     1,
			WholeText: true,
			Malformed: "❌ Вкажіть свої дані текстом",
			Next:      StepParkingAction,
			Assign: func(a *Answers, v []string) {
				a.parking().UserInfo = v[0]
			},
		},
		{
			ID:     StepParkingAction,
			Flow:   FlowParking,
			Prompt: "Оберіть дію:",
			Input:  InputChoice,
			Options: []Option{
				{Token: "add", Label: "Додати / оновити"},
				{Token: "remove", Label: "Видалити"},
				{Token: "other", Label: "Інше"},
			},
			Next: StepParkingCars,
			Assign: func(a *Answers, v []string) {
				a.parking().Action = v[0]
			},
		},
		{
			ID:        StepParkingCars,
			Flow:      FlowParking,
			Prompt:    "Номер карти\nДержномер\nПІБ\nДата",
			Input:     InputLines,
			Lines:     1,
			WholeText: true,
			Malformed: "❌ Вкажіть дані авто текстом",
			Next:      StepParkingMedia,
			Assign: func(a *Answers, v []string) {
				a.parking().Cars = v[0]
			},
		},
		{
			ID:     StepParkingMedia,
			Flow:   FlowParking,
			Prompt: "Додайте файл / фото / відео (Excel, Word, PDF):",
			Input:  InputMedia,
			Next:   StepSubmit,
		},
	}
}
