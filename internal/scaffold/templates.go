package scaffold

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/keysync/pkg/credential"
)

// TemplateData is what the Terraform and bucket templates render from
type TemplateData struct {
	Name        string
	DisplayName string
	BucketName  string
	// RotateAt is written to time_rotating so the key is replaced on the
	// next apply.
	RotateAt string
}

// NewTemplateData derives template data from answers
func NewTemplateData(a Answers, now time.Time) TemplateData {
	return TemplateData{
		Name:        a.ResourceName(),
		DisplayName: a.DisplayName,
		BucketName:  a.BucketName,
		RotateAt:    now.UTC().Format(time.RFC3339),
	}
}

var (
	terraformTemplate = template.Must(template.New("terraform").Parse(terraformIAMTemplate))
	bucketTemplate    = template.Must(template.New("bucket").Parse(s3BucketTemplate))
)

// RenderTerraform renders the IAM user, access key, rotation trigger, S3
// policy and outputs for the service
func RenderTerraform(data TemplateData) (string, error) {
	return render(terraformTemplate, data)
}

// RenderBucket renders the block to add to s3-buckets.tf
func RenderBucket(data TemplateData) (string, error) {
	return render(bucketTemplate, data)
}

// RenderServiceYAML renders a keysync.yaml services snippet
func RenderServiceYAML(id string, cfg credential.ServiceConfig) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	doc := map[string]map[string]credential.ServiceConfig{"services": {id: cfg}}
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to render service YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render service YAML: %w", err)
	}
	return buf.String(), nil
}

func render(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", t.Name(), err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}

const terraformIAMTemplate = `
# IAM user for {{.DisplayName}}
resource "aws_iam_user" "{{.Name}}_backup" {
  name = "{{.Name}}-backup-user"
  path = "/system/"

  tags = merge(
    local.common_tags,
    {
      Name        = "{{.Name}}-backup-user"
      Application = "{{.Name}}"
      Purpose     = "s3-backup-access"
    }
  )
}

# Create access key for {{.Name}} user
resource "aws_iam_access_key" "{{.Name}}_backup" {
  user = aws_iam_user.{{.Name}}_backup.name

  lifecycle {
    create_before_destroy = true
  }

  depends_on = [time_rotating.{{.Name}}_backup_rotation]
}

# Time-based rotation trigger for {{.Name}} backup credentials
resource "time_rotating" "{{.Name}}_backup_rotation" {
  rotation_rfc3339 = "{{.RotateAt}}"
}

# IAM policy for {{.Name}} S3 backup access
resource "aws_iam_policy" "{{.Name}}_backup_s3_access" {
  name        = "{{.Name}}-backup-s3-access"
  path        = "/"
  description = "IAM policy for {{.Name}} to access S3 backup bucket"

  policy = jsonencode({
    Version = "2012-10-17"
    Statement = [
      {
        Sid    = "ListBucketAccess"
        Effect = "Allow"
        Action = [
          "s3:ListBucket",
          "s3:GetBucketLocation"
        ]
        Resource = module.s3_buckets.bucket_arns["{{.BucketName}}"]
      },
      {
        Sid    = "ObjectAccess"
        Effect = "Allow"
        Action = [
          "s3:GetObject",
          "s3:PutObject",
          "s3:DeleteObject",
          "s3:GetObjectVersion",
          "s3:DeleteObjectVersion"
        ]
        Resource = "${module.s3_buckets.bucket_arns["{{.BucketName}}"]}/*"
      }
    ]
  })

  tags = merge(
    local.common_tags,
    {
      Name        = "{{.Name}}-backup-s3-access"
      Application = "{{.Name}}"
    }
  )
}

# Attach the policy to the {{.Name}} user
resource "aws_iam_user_policy_attachment" "{{.Name}}_backup_s3_access" {
  user       = aws_iam_user.{{.Name}}_backup.name
  policy_arn = aws_iam_policy.{{.Name}}_backup_s3_access.arn
}

# Outputs for {{.Name}} configuration
output "{{.Name}}_backup_access_key_id" {
  description = "Access key ID for {{.Name}} backup user"
  value       = aws_iam_access_key.{{.Name}}_backup.id
  sensitive   = true
}

output "{{.Name}}_backup_secret_access_key" {
  description = "Secret access key for {{.Name}} backup user"
  value       = aws_iam_access_key.{{.Name}}_backup.secret
  sensitive   = true
}

output "{{.Name}}_backup_bucket_name" {
  description = "S3 bucket name for {{.Name}} backups"
  value       = module.s3_buckets.bucket_ids["{{.BucketName}}"]
}

output "{{.Name}}_backup_bucket_region" {
  description = "AWS region for {{.Name}} backup bucket"
  value       = var.aws_region
}
`

const s3BucketTemplate = `
# Add this to your s3-buckets.tf file:

{{.BucketName}} = {
  application = "{{.Name}}"
  purpose     = "database-backups"  # or appropriate purpose
  lifecycle_rules = [
    {
      id     = "{{.Name}}_backup_retention"
      status = "Enabled"
      expiration = {
        days = 90  # Adjust retention as needed
      }
      noncurrent_version_expiration = {
        noncurrent_days = 30
      }
    }
  ]
}
`
