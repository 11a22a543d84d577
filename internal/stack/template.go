package stack

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"
)

const templateFormatVersion = "2010-09-09"

type Template struct {
	AWSTemplateFormatVersion string                       `yaml:"AWSTemplateFormatVersion" json:"AWSTemplateFormatVersion"`
	Description              string                       `yaml:"Description,omitempty" json:"Description,omitempty"`
	Metadata                 map[string]any               `yaml:"Metadata,omitempty" json:"Metadata,omitempty"`
	Parameters               map[string]TemplateParameter `yaml:"Parameters,omitempty" json:"Parameters,omitempty"`
	Resources                map[string]TemplateResource  `yaml:"Resources" json:"Resources"`
	Outputs                  map[string]TemplateOutput    `yaml:"Outputs,omitempty" json:"Outputs,omitempty"`
}

type TemplateParameter struct {
	Type        string `yaml:"Type" json:"Type"`
	Description string `yaml:"Description,omitempty" json:"Description,omitempty"`
}

type TemplateResource struct {
	Type                string         `yaml:"Type" json:"Type"`
	Properties          map[string]any `yaml:"Properties,omitempty" json:"Properties,omitempty"`
	DependsOn           []string       `yaml:"DependsOn,omitempty" json:"DependsOn,omitempty"`
	DeletionPolicy      string         `yaml:"DeletionPolicy,omitempty" json:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `yaml:"UpdateReplacePolicy,omitempty" json:"UpdateReplacePolicy,omitempty"`
	Metadata            map[string]any `yaml:"Metadata,omitempty" json:"Metadata,omitempty"`
}

type TemplateOutput struct {
	Description string `yaml:"Description,omitempty" json:"Description,omitempty"`
	Value       any    `yaml:"Value" json:"Value"`
}

// LogicalId derives the template key of a resource from its name.
func LogicalId(id ResourceId) string {
	return strcase.ToCamel(id.Name)
}

// Render converts the stack into a CloudFormation template.
func Render(s *Stack) (*Template, error) {
	topo, err := TopologicalSort(s.Graph)
	if err != nil {
		return nil, fmt.Errorf("stack: render: %w", err)
	}

	logical := make(map[ResourceId]string, len(topo))
	owners := make(map[string]ResourceId, len(topo))
	for _, id := range topo {
		name := LogicalId(id)
		if name == "" {
			return nil, fmt.Errorf("stack: render: resource %s has an empty logical id", id)
		}
		if other, ok := owners[name]; ok {
			return nil, fmt.Errorf("stack: render: logical id %s used by both %s and %s", name, other, id)
		}
		owners[name] = id
		logical[id] = name
	}
	r := renderer{logical: logical}

	t := &Template{
		AWSTemplateFormatVersion: templateFormatVersion,
		Description:              s.Description,
		Metadata: map[string]any{
			"Environment": s.Env.String(),
			"StackName":   s.Name,
		},
		Resources: make(map[string]TemplateResource, len(topo)),
	}

	if len(s.Parameters) > 0 {
		t.Parameters = make(map[string]TemplateParameter, len(s.Parameters))
		for name, p := range s.Parameters {
			t.Parameters[name] = TemplateParameter{Type: p.Type, Description: p.Description}
		}
	}

	for _, id := range topo {
		res, err := s.Graph.Vertex(id)
		if err != nil {
			return nil, fmt.Errorf("stack: render: %w", err)
		}

		var dependsOn []string
		for _, dep := range res.DependsOn {
			dependsOn = append(dependsOn, logical[dep])
		}

		tr := TemplateResource{
			Type:                res.CloudFormationType(),
			DependsOn:           dependsOn,
			DeletionPolicy:      res.DeletionPolicy,
			UpdateReplacePolicy: res.UpdateReplacePolicy,
		}
		if len(res.Properties) > 0 {
			tr.Properties = r.value(map[string]any(res.Properties)).(map[string]any)
		}
		if len(res.Metadata) > 0 {
			tr.Metadata = r.value(res.Metadata).(map[string]any)
		}
		t.Resources[logical[id]] = tr
	}

	if len(s.Outputs) > 0 {
		t.Outputs = make(map[string]TemplateOutput, len(s.Outputs))
		for name, o := range s.Outputs {
			t.Outputs[name] = TemplateOutput{Description: o.Description, Value: r.value(o.Value)}
		}
	}

	return t, nil
}

func (t *Template) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("stack: encode yaml: %w", err)
	}
	return enc.Close()
}

func (t *Template) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("stack: encode json: %w", err)
	}
	return nil
}

type renderer struct {
	logical map[ResourceId]string
}

func (r renderer) value(v any) any {
	switch val := v.(type) {
	case Ref:
		return map[string]any{"Ref": r.logical[val.Resource]}
	case Attr:
		return map[string]any{"Fn::GetAtt": []any{r.logical[val.Resource], val.Name}}
	case SecretValue:
		return r.value(Join("",
			"{{resolve:secretsmanager:", Ref{Resource: val.Secret}, ":SecretString:"+val.Key+"::}}",
		))
	case Param:
		return map[string]any{"Ref": string(val)}
	case Pseudo:
		return map[string]any{"Ref": string(val)}
	case Fn:
		return map[string]any{val.Name: r.value(val.Args)}
	case Properties:
		return r.value(map[string]any(val))
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.value(item)
		}
		return out
	default:
		return v
	}
}
