package sms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oraharon2020/tavati-sub001/internal/pkg/config"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/dysmsapi"
)

// AliyunProvider is the fallback integration over Alibaba Cloud dysmsapi.
// The client is created lazily on first send so that missing credentials
// never block startup.
type AliyunProvider struct {
	cfg    config.AliyunSMSConfig
	client *dysmsapi.Client
}

func NewAliyunProvider(cfg config.AliyunSMSConfig) *AliyunProvider {
	return &AliyunProvider{cfg: cfg}
}

func (p *AliyunProvider) Name() string {
	return "aliyun"
}

func (p *AliyunProvider) Configured() bool {
	return p.cfg.AccessKeyID != "" && p.cfg.AccessKeySecret != ""
}

func (p *AliyunProvider) Send(ctx context.Context, phone, message string) error {
	if p.client == nil {
		client, err := dysmsapi.NewClientWithAccessKey(
			p.cfg.RegionID,
			p.cfg.AccessKeyID,
			p.cfg.AccessKeySecret,
		)
		if err != nil {
			return err
		}
		p.client = client
	}

	param, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return err
	}

	request := dysmsapi.CreateSendSmsRequest()
	request.Scheme = "https"
	request.PhoneNumbers = phone
	request.SignName = p.cfg.SignName
	request.TemplateCode = p.cfg.TemplateCode
	request.TemplateParam = string(param)

	response, err := p.client.SendSms(request)
	if err != nil {
		return err
	}
	if response.Code != "OK" {
		return fmt.Errorf("aliyun sms: %s (%s)", response.Code, response.Message)
	}
	return nil
}

var _ Provider = (*AliyunProvider)(nil)
