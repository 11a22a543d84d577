package stack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usEast1Props() Props {
	props := DefaultProps()
	props.Env = Environment{Account: "123456789012", Region: "us-east-1"}
	return props
}

func newTestStack(t *testing.T, props Props) *Stack {
	t.Helper()
	s, err := New(props)
	require.NoError(t, err)
	return s
}

func countOfType(t *testing.T, g Graph, typ string) int {
	t.Helper()
	resources, err := ResourcesOfType(g, typ)
	require.NoError(t, err)
	return len(resources)
}

func TestNew_EndToEnd(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	assert.Equal(t, "AwsRdsStack", s.Name)
	assert.Equal(t, "aws://123456789012/us-east-1", s.Env.String())

	assert.Equal(t, 1, countOfType(t, s.Graph, RdsInstanceType))
	assert.Equal(t, 1, countOfType(t, s.Graph, LambdaFunctionType))
	assert.Equal(t, 1, countOfType(t, s.Graph, RestApiType))
	assert.Equal(t, 1, countOfType(t, s.Graph, VpcType))
	assert.Equal(t, 1, countOfType(t, s.Graph, SecretType))
	assert.Equal(t, 4, countOfType(t, s.Graph, SubnetType))
	assert.Equal(t, 2, countOfType(t, s.Graph, NatGatewayType))

	// One catch-all route below the root.
	routes, err := ResourcesOfType(s.Graph, ApiResourceType)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "{proxy+}", routes[0].Properties["PathPart"])

	methods, err := ResourcesOfType(s.Graph, ApiMethodType)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	for _, m := range methods {
		assert.Equal(t, "ANY", m.Properties["HttpMethod"])
	}

	fn, err := s.Resource(s.Function.Function)
	require.NoError(t, err)
	env := fn.Properties["Environment"].(map[string]any)["Variables"].(map[string]any)

	var keys []string
	for k := range env {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{EnvDBHost, EnvDBPort, EnvDBName, EnvDBUser, EnvDBPassword}, keys)
	assert.Equal(t, "5432", env[EnvDBPort])
	assert.Equal(t, "nestdb", env[EnvDBName])
	assert.Equal(t, "postgres", env[EnvDBUser])
	assert.Equal(t, Attr{Resource: s.Database.Instance, Name: "Endpoint.Address"}, env[EnvDBHost])
	assert.Equal(t, SecretValue{Secret: s.Database.Secret, Key: "password"}, env[EnvDBPassword])
}

func TestNew_GraphIsOrdered(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	topo, err := TopologicalSort(s.Graph)
	require.NoError(t, err)

	order, err := s.Graph.Order()
	require.NoError(t, err)
	require.Len(t, topo, order)

	position := make(map[ResourceId]int, len(topo))
	for i, id := range topo {
		position[id] = i
	}
	for _, id := range topo {
		r, err := s.Graph.Vertex(id)
		require.NoError(t, err)
		for _, ref := range r.References() {
			pos, ok := position[ref]
			require.Truef(t, ok, "%s references %s which is not in the graph", id, ref)
			assert.Lessf(t, pos, position[id], "%s must come after its dependency %s", id, ref)
		}
	}
}

func TestNew_DatabaseAndGatewayAreNotDirectlyLinked(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	adj, err := s.Graph.AdjacencyMap()
	require.NoError(t, err)

	gatewayTypes := map[string]bool{
		RestApiType:          true,
		ApiResourceType:      true,
		ApiMethodType:        true,
		ApiDeploymentType:    true,
		ApiStageType:         true,
		LambdaPermissionType: true,
	}
	for src, targets := range adj {
		for dst := range targets {
			if src == s.Database.Instance {
				assert.Falsef(t, gatewayTypes[dst.Type], "database depends on gateway resource %s", dst)
			}
			if dst == s.Database.Instance {
				assert.Falsef(t, gatewayTypes[src.Type], "gateway resource %s depends on database", src)
			}
		}
	}

	// The function is the only bridge between the two.
	deps, err := DirectDependencies(s.Graph, s.Function.Function)
	require.NoError(t, err)
	assert.Contains(t, deps, s.Database.Instance)

	dependents, err := Dependents(s.Graph, s.Function.Function)
	require.NoError(t, err)
	assert.Contains(t, dependents, s.Gateway.Permission)
	assert.Contains(t, dependents, s.Gateway.Methods[0])
}

func TestNew_DatabasePolicies(t *testing.T) {
	props := usEast1Props()
	props.Database.MultiAz = true
	s := newTestStack(t, props)

	db, err := s.Resource(s.Database.Instance)
	require.NoError(t, err)

	assert.Equal(t, false, db.Properties["PubliclyAccessible"])
	assert.Equal(t, false, db.Properties["DeletionProtection"])
	assert.Equal(t, true, db.Properties["MultiAZ"])
	assert.Equal(t, PolicyDelete, db.DeletionPolicy)
	assert.Equal(t, PolicyDelete, db.UpdateReplacePolicy)
	assert.Equal(t, "postgres", db.Properties["Engine"])
	assert.Equal(t, "15.14", db.Properties["EngineVersion"])
	assert.Equal(t, "db.t3.micro", db.Properties["DBInstanceClass"])
	assert.Equal(t, "20", db.Properties["AllocatedStorage"])
	assert.Equal(t, 100, db.Properties["MaxAllocatedStorage"])
	assert.Equal(t, "nestdb", db.Properties["DBName"])

	subnetGroup, err := s.Resource(s.Database.SubnetGroup)
	require.NoError(t, err)
	var want []any
	for _, id := range s.Network.PrivateSubnets {
		want = append(want, Ref{Resource: id})
	}
	if diff := cmp.Diff(want, subnetGroup.Properties["SubnetIds"]); diff != "" {
		t.Errorf("subnet group subnets mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_DatabaseIngressIsLimitedToVpc(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	sg, err := s.Resource(s.Database.SecurityGroup)
	require.NoError(t, err)

	want := []any{
		map[string]any{
			"CidrIp":      Attr{Resource: s.Network.Vpc, Name: "CidrBlock"},
			"Description": "from VPC CIDR:5432",
			"FromPort":    5432,
			"ToPort":      5432,
			"IpProtocol":  "tcp",
		},
	}
	if diff := cmp.Diff(want, sg.Properties["SecurityGroupIngress"]); diff != "" {
		t.Errorf("ingress mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_SecretTemplate(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	secret, err := s.Resource(s.Database.Secret)
	require.NoError(t, err)

	assert.Equal(t, "rds-postgres-credentials", secret.Properties["Name"])
	want := map[string]any{
		"SecretStringTemplate": `{"username":"postgres"}`,
		"GenerateStringKey":    "password",
		"ExcludePunctuation":   true,
	}
	if diff := cmp.Diff(want, secret.Properties["GenerateSecretString"]); diff != "" {
		t.Errorf("secret template mismatch (-want +got):\n%s", diff)
	}

	// The function may read the secret.
	policy, err := s.Resource(s.Function.Policy)
	require.NoError(t, err)
	assert.Contains(t, policy.References(), s.Database.Secret)
}

func TestNew_FunctionBundling(t *testing.T) {
	s := newTestStack(t, usEast1Props())

	fn, err := s.Resource(s.Function.Function)
	require.NoError(t, err)

	assert.Equal(t, "nodejs20.x", fn.Properties["Runtime"])
	assert.Equal(t, 512, fn.Properties["MemorySize"])
	assert.Equal(t, "../../nodejs-aws-cart-api/src/main-lambda.ts", fn.Metadata["aws:asset:path"])

	bundling := fn.Metadata["bundling"].(map[string]any)
	assert.Equal(t, false, bundling["forceDockerBundling"])
	assert.Equal(t, []any{
		"@nestjs/websockets",
		"@nestjs/microservices",
		"@nestjs/websockets/socket-module",
		"@nestjs/microservices/microservices-module",
		"class-validator",
		"class-transformer",
	}, bundling["externalModules"])

	assert.Contains(t, s.Parameters, s.Function.AssetBucket)
	assert.Contains(t, s.Parameters, s.Function.AssetKey)
}

func TestNew_WithoutInlinePassword(t *testing.T) {
	props := usEast1Props()
	props.Function.InlinePassword = false
	s := newTestStack(t, props)

	fn, err := s.Resource(s.Function.Function)
	require.NoError(t, err)
	env := fn.Properties["Environment"].(map[string]any)["Variables"].(map[string]any)

	assert.NotContains(t, env, EnvDBPassword)
	assert.Equal(t, Ref{Resource: s.Database.Secret}, env[EnvDBSecretArn])
}

func TestNew_SingleNatGateway(t *testing.T) {
	props := usEast1Props()
	props.Network.NatGateways = 1
	s := newTestStack(t, props)

	require.Len(t, s.Network.NatGateways, 1)
	routes, err := ResourcesOfType(s.Graph, RouteType)
	require.NoError(t, err)

	nat := Ref{Resource: s.Network.NatGateways[0]}
	var viaNat int
	for _, r := range routes {
		if r.Properties["NatGatewayId"] == nat {
			viaNat++
		}
	}
	assert.Equal(t, 2, viaNat)
}

func TestNew_InvalidProps(t *testing.T) {
	props := usEast1Props()
	props.Database.AllocatedStorage = 200

	s, err := New(props)
	require.ErrorIs(t, err, ErrInvalidProps)
	assert.Nil(t, s)
}
