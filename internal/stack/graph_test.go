package stack

import (
	"testing"

	"github.com/dominikbraun/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceId(t *testing.T) {
	id := NewResourceId(VpcType, "NestVpc")
	assert.Equal(t, "aws:vpc:NestVpc", id.String())
	assert.False(t, id.IsZero())
	assert.Equal(t, "", ResourceId{}.String())

	var parsed ResourceId
	require.NoError(t, parsed.UnmarshalText([]byte("aws:vpc:NestVpc")))
	assert.Equal(t, id, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("vpc")))
}

func TestResource_References(t *testing.T) {
	vpc := NewResourceId(VpcType, "vpc")
	subnet := NewResourceId(SubnetType, "subnet")
	secret := NewResourceId(SecretType, "secret")
	attachment := NewResourceId(VpcGatewayAttachmentType, "attachment")

	r := NewResource(RdsInstanceType, "db", Properties{
		"VpcId":    Ref{Resource: vpc},
		"Subnets":  []any{Ref{Resource: subnet}, Ref{Resource: subnet}},
		"Password": SecretValue{Secret: secret, Key: "password"},
		"Nested":   map[string]any{"Cidr": Select(0, Cidr(Attr{Resource: vpc, Name: "CidrBlock"}, 4, 14))},
		"Literal":  "value",
	})
	r.DependsOn = []ResourceId{attachment}

	assert.Equal(t, []ResourceId{secret, subnet, vpc, attachment}, r.References())
}

func TestLink(t *testing.T) {
	g := NewGraph()
	vpc := NewResource(VpcType, "vpc", nil)
	subnet := NewResource(SubnetType, "subnet", Properties{"VpcId": Ref{Resource: vpc.ID}})
	require.NoError(t, AddResources(g, vpc, subnet))
	require.NoError(t, Link(g))

	_, err := g.Edge(subnet.ID, vpc.ID)
	require.NoError(t, err)
	require.NoError(t, Validate(g))

	// Linking twice is harmless.
	require.NoError(t, Link(g))
}

func TestLink_UnresolvedReference(t *testing.T) {
	g := NewGraph()
	subnet := NewResource(SubnetType, "subnet", Properties{
		"VpcId": Ref{Resource: NewResourceId(VpcType, "missing")},
	})
	require.NoError(t, AddResources(g, subnet))

	require.ErrorIs(t, Link(g), ErrUnresolvedReference)
	require.ErrorIs(t, Validate(g), ErrUnresolvedReference)
}

func TestLink_Cycle(t *testing.T) {
	g := NewGraph()
	a := NewResource(VpcType, "a", nil)
	b := NewResource(SubnetType, "b", Properties{"VpcId": Ref{Resource: a.ID}})
	a.DependsOn = []ResourceId{b.ID}
	require.NoError(t, AddResources(g, a, b))

	require.ErrorIs(t, Link(g), graph.ErrEdgeCreatesCycle)
}

func TestAddResources_Duplicate(t *testing.T) {
	g := NewGraph()
	require.NoError(t, AddResources(g, NewResource(VpcType, "vpc", nil)))
	require.ErrorIs(t, AddResources(g, NewResource(VpcType, "vpc", nil)), graph.ErrVertexAlreadyExists)
}

func TestValidate_UnsupportedType(t *testing.T) {
	g := NewGraph()
	require.NoError(t, AddResources(g, NewResource("bucket", "assets", nil)))
	assert.Error(t, Validate(g))
}

func TestTopologicalSort(t *testing.T) {
	g := NewGraph()
	vpc := NewResource(VpcType, "vpc", nil)
	igw := NewResource(InternetGatewayType, "igw", nil)
	attachment := NewResource(VpcGatewayAttachmentType, "attachment", Properties{
		"VpcId":             Ref{Resource: vpc.ID},
		"InternetGatewayId": Ref{Resource: igw.ID},
	})
	require.NoError(t, AddResources(g, attachment, vpc, igw))
	require.NoError(t, Link(g))

	topo, err := TopologicalSort(g)
	require.NoError(t, err)
	assert.Equal(t, []ResourceId{igw.ID, vpc.ID, attachment.ID}, topo)

	out, err := String(g)
	require.NoError(t, err)
	assert.Equal(t,
		"aws:internet_gateway:igw\n"+
			"aws:vpc:vpc\n"+
			"aws:vpc_gateway_attachment:attachment\n"+
			"-> aws:internet_gateway:igw\n"+
			"-> aws:vpc:vpc\n",
		out)

	deps, err := DirectDependencies(g, attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, []ResourceId{igw.ID, vpc.ID}, deps)

	dependents, err := Dependents(g, vpc.ID)
	require.NoError(t, err)
	assert.Equal(t, []ResourceId{attachment.ID}, dependents)
}
