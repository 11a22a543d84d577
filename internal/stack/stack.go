package stack

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

type Parameter struct {
	Type        string
	Description string
}

type Output struct {
	Description string
	Value       any
}

// Stack is the complete, linked resource graph for one deployment of the cart API.
type Stack struct {
	Name        string
	Description string
	Env         Environment
	Graph       Graph
	Parameters  map[string]Parameter
	Outputs     map[string]Output

	Network  Network
	Database Database
	Function Function
	Gateway  Gateway
}

// New builds the stack described by props. The returned graph is linked and validated.
func New(props Props) (*Stack, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		stackName:  props.StackName,
		parameters: make(map[string]Parameter),
		outputs:    make(map[string]Output),
	}

	network, err := b.network(props.Network)
	if err != nil {
		return nil, err
	}
	database := b.database(props, network)
	function := b.function(props, network, database)
	gateway := b.gateway(props.Gateway, function)

	b.outputs["ApiUrl"] = Output{
		Description: "Invoke URL of the REST API stage",
		Value:       gateway.URL(),
	}
	b.outputs["DbEndpoint"] = Output{
		Description: "Address of the PostgreSQL instance",
		Value:       Attr{Resource: database.Instance, Name: "Endpoint.Address"},
	}
	b.outputs["SecretArn"] = Output{
		Description: "ARN of the generated database credentials",
		Value:       Ref{Resource: database.Secret},
	}

	g := NewGraph()
	if err := AddResources(g, b.resources...); err != nil {
		return nil, fmt.Errorf("stack: %w", err)
	}
	if err := Link(g); err != nil {
		return nil, fmt.Errorf("stack: %w", err)
	}
	if err := Validate(g); err != nil {
		return nil, fmt.Errorf("stack: %w", err)
	}

	order, _ := g.Order()
	log.Debug().
		Str("stack", props.StackName).
		Str("env", props.Env.String()).
		Int("resources", order).
		Msg("Stack built")

	return &Stack{
		Name:        props.StackName,
		Description: props.Description,
		Env:         props.Env,
		Graph:       g,
		Parameters:  b.parameters,
		Outputs:     b.outputs,
		Network:     network,
		Database:    database,
		Function:    function,
		Gateway:     gateway,
	}, nil
}

// Resource looks up a single resource by id.
func (s *Stack) Resource(id ResourceId) (*Resource, error) {
	r, err := s.Graph.Vertex(id)
	if err != nil {
		return nil, fmt.Errorf("stack: resource %s: %w", id, err)
	}
	return r, nil
}

type builder struct {
	stackName  string
	resources  []*Resource
	parameters map[string]Parameter
	outputs    map[string]Output
}

func (b *builder) add(typ, name string, props Properties) *Resource {
	r := NewResource(typ, name, props)
	b.resources = append(b.resources, r)
	return r
}
