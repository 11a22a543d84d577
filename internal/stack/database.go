package stack

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Database struct {
	SecurityGroup ResourceId
	Secret        ResourceId
	SubnetGroup   ResourceId
	Instance      ResourceId
	Port          int
	DatabaseName  string
	Username      string
	PasswordKey   string
}

func (b *builder) database(p Props, net Network) Database {
	db := p.Database

	sg := b.securityGroup(net.Vpc, p.SecurityGroup.Name, b.path(p.SecurityGroup.Name), map[string]any{
		"CidrIp":      Attr{Resource: net.Vpc, Name: "CidrBlock"},
		"Description": fmt.Sprintf("from VPC CIDR:%d", db.Port),
		"FromPort":    db.Port,
		"ToPort":      db.Port,
		"IpProtocol":  "tcp",
	})

	secret := b.credentials(p.Secret)

	subnetGroup := b.add(RdsSubnetGroupType, db.Name+"-subnet-group", Properties{
		"DBSubnetGroupDescription": "Subnet group for " + db.Name + " database",
		"SubnetIds":                net.privateSubnetRefs(),
	})

	instance := b.add(RdsInstanceType, db.Name, Properties{
		"Engine":              db.Engine,
		"EngineVersion":       db.EngineVersion,
		"DBInstanceClass":     db.InstanceClass,
		"AllocatedStorage":    strconv.Itoa(db.AllocatedStorage),
		"MaxAllocatedStorage": db.MaxAllocatedStorage,
		"DBName":              db.DatabaseName,
		"Port":                strconv.Itoa(db.Port),
		"DBSubnetGroupName":   Ref{Resource: subnetGroup.ID},
		"VPCSecurityGroups":   []any{Attr{Resource: sg.ID, Name: "GroupId"}},
		// The instance lives in private subnets only.
		"PubliclyAccessible": false,
		"MultiAZ":            db.MultiAz,
		"DeletionProtection": db.DeletionProtection,
		"StorageType":        "gp2",
		"CopyTagsToSnapshot": true,
		"MasterUsername":     SecretValue{Secret: secret.ID, Key: "username"},
		"MasterUserPassword": SecretValue{Secret: secret.ID, Key: p.Secret.GenerateStringKey},
	})
	instance.DeletionPolicy = PolicyDelete
	instance.UpdateReplacePolicy = PolicyDelete

	b.add(SecretTargetAttachmentType, p.Secret.Name+"-attachment", Properties{
		"SecretId":   Ref{Resource: secret.ID},
		"TargetId":   Ref{Resource: instance.ID},
		"TargetType": "AWS::RDS::DBInstance",
	})

	return Database{
		SecurityGroup: sg.ID,
		Secret:        secret.ID,
		SubnetGroup:   subnetGroup.ID,
		Instance:      instance.ID,
		Port:          db.Port,
		DatabaseName:  db.DatabaseName,
		Username:      p.Secret.Username,
		PasswordKey:   p.Secret.GenerateStringKey,
	}
}

// credentials declares a secret holding a fixed username and a generated password
// without punctuation.
func (b *builder) credentials(p SecretProps) *Resource {
	template, _ := json.Marshal(map[string]string{"username": p.Username})

	secret := b.add(SecretType, p.Name, Properties{
		"Name": p.SecretName,
		"GenerateSecretString": map[string]any{
			"SecretStringTemplate": string(template),
			"GenerateStringKey":    p.GenerateStringKey,
			"ExcludePunctuation":   true,
		},
	})
	secret.DeletionPolicy = PolicyDelete
	secret.UpdateReplacePolicy = PolicyDelete
	return secret
}
