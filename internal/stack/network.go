package stack

import (
	"fmt"
)

// Network holds the ids of the network resources other families attach to.
type Network struct {
	Vpc            ResourceId
	PublicSubnets  []ResourceId
	PrivateSubnets []ResourceId
	NatGateways    []ResourceId
}

func (n Network) privateSubnetRefs() []any {
	refs := make([]any, 0, len(n.PrivateSubnets))
	for _, id := range n.PrivateSubnets {
		refs = append(refs, Ref{Resource: id})
	}
	return refs
}

// network lays out a VPC with one public and one private subnet per availability zone.
// Public subnets route to the internet gateway and host the NAT gateways; private
// subnets route outbound traffic through a NAT gateway.
func (b *builder) network(p NetworkProps) (Network, error) {
	cidrBits, err := subnetCidrBits(p.Cidr, p.MaxAzs)
	if err != nil {
		return Network{}, fmt.Errorf("stack: %w", err)
	}
	subnetCount := 2 * p.MaxAzs

	vpc := b.add(VpcType, p.Name, Properties{
		"CidrBlock":          p.Cidr,
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
		"InstanceTenancy":    "default",
		"Tags":               []any{tag("Name", b.path(p.Name))},
	})

	igw := b.add(InternetGatewayType, p.Name+"-igw", Properties{
		"Tags": []any{tag("Name", b.path(p.Name))},
	})
	attachment := b.add(VpcGatewayAttachmentType, p.Name+"-vpc-gw", Properties{
		"VpcId":             Ref{Resource: vpc.ID},
		"InternetGatewayId": Ref{Resource: igw.ID},
	})

	net := Network{Vpc: vpc.ID}
	subnetBlocks := Cidr(Attr{Resource: vpc.ID, Name: "CidrBlock"}, subnetCount, cidrBits)

	for i := 0; i < p.MaxAzs; i++ {
		name := fmt.Sprintf("%s-public-subnet-%d", p.Name, i+1)
		subnet := b.subnet(vpc.ID, name, Select(i, subnetBlocks), i, true)
		table := b.routeTable(vpc.ID, subnet.ID, name)

		route := b.add(RouteType, name+"-default-route", Properties{
			"RouteTableId":         Ref{Resource: table.ID},
			"DestinationCidrBlock": "0.0.0.0/0",
			"GatewayId":            Ref{Resource: igw.ID},
		})
		route.DependsOn = []ResourceId{attachment.ID}
		net.PublicSubnets = append(net.PublicSubnets, subnet.ID)

		if i >= p.NatGateways {
			continue
		}
		eip := b.add(ElasticIpType, name+"-eip", Properties{
			"Domain": "vpc",
			"Tags":   []any{tag("Name", b.path(name))},
		})
		nat := b.add(NatGatewayType, name+"-nat-gateway", Properties{
			"AllocationId": Attr{Resource: eip.ID, Name: "AllocationId"},
			"SubnetId":     Ref{Resource: subnet.ID},
			"Tags":         []any{tag("Name", b.path(name))},
		})
		nat.DependsOn = []ResourceId{route.ID}
		net.NatGateways = append(net.NatGateways, nat.ID)
	}

	for i := 0; i < p.MaxAzs; i++ {
		name := fmt.Sprintf("%s-private-subnet-%d", p.Name, i+1)
		subnet := b.subnet(vpc.ID, name, Select(p.MaxAzs+i, subnetBlocks), i, false)
		table := b.routeTable(vpc.ID, subnet.ID, name)

		b.add(RouteType, name+"-default-route", Properties{
			"RouteTableId":         Ref{Resource: table.ID},
			"DestinationCidrBlock": "0.0.0.0/0",
			"NatGatewayId":         Ref{Resource: net.NatGateways[i%len(net.NatGateways)]},
		})
		net.PrivateSubnets = append(net.PrivateSubnets, subnet.ID)
	}

	return net, nil
}

func (b *builder) subnet(vpc ResourceId, name string, cidr Fn, az int, public bool) *Resource {
	subnetType := "Private"
	if public {
		subnetType = "Public"
	}
	return b.add(SubnetType, name, Properties{
		"VpcId":               Ref{Resource: vpc},
		"CidrBlock":           cidr,
		"AvailabilityZone":    Select(az, GetAZs()),
		"MapPublicIpOnLaunch": public,
		"Tags": []any{
			tag("Name", b.path(name)),
			tag("aws-cdk:subnet-type", subnetType),
		},
	})
}

func (b *builder) routeTable(vpc, subnet ResourceId, name string) *Resource {
	table := b.add(RouteTableType, name+"-route-table", Properties{
		"VpcId": Ref{Resource: vpc},
		"Tags":  []any{tag("Name", b.path(name))},
	})
	b.add(SubnetRouteTableAssociationType, name+"-route-table-association", Properties{
		"RouteTableId": Ref{Resource: table.ID},
		"SubnetId":     Ref{Resource: subnet},
	})
	return table
}

// path is the construct path used for Name tags and descriptions.
func (b *builder) path(name string) string {
	return b.stackName + "/" + name
}

// securityGroup returns a group that allows all outbound traffic plus the given ingress rules.
func (b *builder) securityGroup(vpc ResourceId, name, description string, ingress ...map[string]any) *Resource {
	props := Properties{
		"GroupDescription": description,
		"VpcId":            Ref{Resource: vpc},
		"SecurityGroupEgress": []any{
			map[string]any{
				"CidrIp":      "0.0.0.0/0",
				"Description": "Allow all outbound traffic by default",
				"IpProtocol":  "-1",
			},
		},
	}
	if len(ingress) > 0 {
		rules := make([]any, 0, len(ingress))
		for _, rule := range ingress {
			rules = append(rules, rule)
		}
		props["SecurityGroupIngress"] = rules
	}
	return b.add(SecurityGroupType, name, props)
}
