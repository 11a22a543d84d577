package stack

import (
	"fmt"
	"sort"
	"strings"
)

const AWSProvider = "aws"

const (
	VpcType                         = "vpc"
	InternetGatewayType             = "internet_gateway"
	VpcGatewayAttachmentType        = "vpc_gateway_attachment"
	SubnetType                      = "subnet"
	RouteTableType                  = "route_table"
	RouteType                       = "route"
	SubnetRouteTableAssociationType = "subnet_route_table_association"
	ElasticIpType                   = "elastic_ip"
	NatGatewayType                  = "nat_gateway"
	SecurityGroupType               = "security_group"
	SecretType                      = "secret"
	SecretTargetAttachmentType      = "secret_target_attachment"
	RdsSubnetGroupType              = "rds_subnet_group"
	RdsInstanceType                 = "rds_instance"
	IamRoleType                     = "iam_role"
	IamPolicyType                   = "iam_policy"
	LambdaFunctionType              = "lambda_function"
	LambdaPermissionType            = "lambda_permission"
	RestApiType                     = "rest_api"
	ApiResourceType                 = "api_resource"
	ApiMethodType                   = "api_method"
	ApiDeploymentType               = "api_deployment"
	ApiStageType                    = "api_stage"
)

// cloudFormationTypes maps a resource type to the CloudFormation type it renders as.
var cloudFormationTypes = map[string]string{
	VpcType:                         "AWS::EC2::VPC",
	InternetGatewayType:             "AWS::EC2::InternetGateway",
	VpcGatewayAttachmentType:        "AWS::EC2::VPCGatewayAttachment",
	SubnetType:                      "AWS::EC2::Subnet",
	RouteTableType:                  "AWS::EC2::RouteTable",
	RouteType:                       "AWS::EC2::Route",
	SubnetRouteTableAssociationType: "AWS::EC2::SubnetRouteTableAssociation",
	ElasticIpType:                   "AWS::EC2::EIP",
	NatGatewayType:                  "AWS::EC2::NatGateway",
	SecurityGroupType:               "AWS::EC2::SecurityGroup",
	SecretType:                      "AWS::SecretsManager::Secret",
	SecretTargetAttachmentType:      "AWS::SecretsManager::SecretTargetAttachment",
	RdsSubnetGroupType:              "AWS::RDS::DBSubnetGroup",
	RdsInstanceType:                 "AWS::RDS::DBInstance",
	IamRoleType:                     "AWS::IAM::Role",
	IamPolicyType:                   "AWS::IAM::Policy",
	LambdaFunctionType:              "AWS::Lambda::Function",
	LambdaPermissionType:            "AWS::Lambda::Permission",
	RestApiType:                     "AWS::ApiGateway::RestApi",
	ApiResourceType:                 "AWS::ApiGateway::Resource",
	ApiMethodType:                   "AWS::ApiGateway::Method",
	ApiDeploymentType:               "AWS::ApiGateway::Deployment",
	ApiStageType:                    "AWS::ApiGateway::Stage",
}

// PolicyDelete removes the physical resource together with the stack.
const PolicyDelete = "Delete"

type ResourceId struct {
	Provider string `yaml:"provider"`
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
}

func NewResourceId(typ, name string) ResourceId {
	return ResourceId{Provider: AWSProvider, Type: typ, Name: name}
}

var zeroId = ResourceId{}

func (id ResourceId) IsZero() bool {
	return id == zeroId
}

func (id ResourceId) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Provider + ":" + id.Type + ":" + id.Name
}

func (id ResourceId) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ResourceId) UnmarshalText(b []byte) error {
	parts := strings.SplitN(string(b), ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("invalid resource id %q, expected provider:type:name", string(b))
	}
	*id = ResourceId{Provider: parts[0], Type: parts[1], Name: parts[2]}
	return nil
}

type sortedIds []ResourceId

func (s sortedIds) Len() int           { return len(s) }
func (s sortedIds) Less(i, j int) bool { return s[i].String() < s[j].String() }
func (s sortedIds) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

type Properties map[string]any

// Resource is a single node of the stack graph.
type Resource struct {
	ID                  ResourceId
	Properties          Properties
	DependsOn           []ResourceId
	DeletionPolicy      string
	UpdateReplacePolicy string
	Metadata            map[string]any
}

func NewResource(typ, name string, props Properties) *Resource {
	if props == nil {
		props = make(Properties)
	}
	return &Resource{
		ID:         NewResourceId(typ, name),
		Properties: props,
	}
}

// CloudFormationType returns the provider type for the resource, or "" for an unknown type.
func (r *Resource) CloudFormationType() string {
	return cloudFormationTypes[r.ID.Type]
}

// References returns every resource this one depends on, either through a property
// value or an explicit DependsOn entry. The result is sorted and free of duplicates.
func (r *Resource) References() []ResourceId {
	seen := make(map[ResourceId]struct{})
	add := func(id ResourceId) {
		if id.IsZero() || id == r.ID {
			return
		}
		seen[id] = struct{}{}
	}
	collectRefs(r.Properties, add)
	for _, dep := range r.DependsOn {
		add(dep)
	}

	ids := make([]ResourceId, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Sort(sortedIds(ids))
	return ids
}
