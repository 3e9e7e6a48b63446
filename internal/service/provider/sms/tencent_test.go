package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	tcsms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/sms/v20210111"
)

func TestTencentProvider_Send(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		template string
		resp     *tcsms.SendSmsResponse
		err      error

		wantSerial   string
		wantErr      error
		wantTerminal bool
	}{
		{
			name:       "ok",
			template:   "appointment_reminder",
			resp:       statusResp("Ok", "send success", "serial-1"),
			wantSerial: "serial-1",
		}, {
			name:       "mixed case template name",
			template:   "Appointment_Reminder",
			resp:       statusResp("Ok", "send success", "serial-2"),
			wantSerial: "serial-2",
		}, {
			name:         "unknown template",
			template:     "unknown",
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: true,
		}, {
			name:         "invalid phone number",
			template:     "appointment_reminder",
			resp:         statusResp("InvalidParameterValue.IncorrectPhoneNumber", "incorrect phone number", ""),
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: true,
		}, {
			name:         "rate limited",
			template:     "appointment_reminder",
			resp:         statusResp("LimitExceeded.PhoneNumberThirtySecondLimit", "too frequent", ""),
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: false,
		}, {
			name:         "sdk internal error",
			template:     "appointment_reminder",
			err:          tcerr.NewTencentCloudSDKError("InternalError.Timeout", "timeout", "req-1"),
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: false,
		}, {
			name:         "sdk auth failure",
			template:     "appointment_reminder",
			err:          tcerr.NewTencentCloudSDKError("AuthFailure.SignatureFailure", "bad signature", "req-2"),
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: true,
		}, {
			name:         "network error",
			template:     "appointment_reminder",
			err:          errors.New("dial tcp: i/o timeout"),
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: false,
		}, {
			name:         "empty response",
			template:     "appointment_reminder",
			resp:         &tcsms.SendSmsResponse{},
			wantErr:      errs.ErrFailedToSend,
			wantTerminal: false,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeTencentClient{resp: tc.resp, err: tc.err}
			p := newTencentProvider(client, TencentConfig{
				AppId:     "1400000000",
				SignName:  "clinic",
				Templates: map[string]string{"appointment_reminder": "100001"},
			})

			res, err := p.Send(context.Background(), domain.Message{
				CorrelationId: "c-1",
				Destination:   "+8613800000000",
				Template:      domain.Template{Name: tc.template, Content: "see you tomorrow"},
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantTerminal, errs.IsTerminal(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, TencentProviderName, res.Provider)
			assert.Equal(t, tc.wantSerial, res.ProviderCorrelationId)

			require.NotNil(t, client.req)
			assert.Equal(t, "100001", *client.req.TemplateId)
			assert.Equal(t, "+8613800000000", *client.req.PhoneNumberSet[0])
			assert.Equal(t, "see you tomorrow", *client.req.TemplateParamSet[0])
		})
	}
}

func TestTencentProvider_MixedCaseTemplateConfig(t *testing.T) {
	t.Parallel()

	client := &fakeTencentClient{resp: statusResp("Ok", "send success", "serial-1")}
	p := newTencentProvider(client, TencentConfig{
		Templates: map[string]string{"Medication_Refill": "100002"},
	})

	_, err := p.Send(context.Background(), domain.Message{
		Destination: "+8613800000000",
		Template:    domain.Template{Name: "medication_refill", Content: "refill due"},
	})
	require.NoError(t, err)
	assert.Equal(t, "100002", *client.req.TemplateId)
}

func statusResp(code, message, serial string) *tcsms.SendSmsResponse {
	resp := tcsms.NewSendSmsResponse()
	resp.Response = &tcsms.SendSmsResponseParams{
		SendStatusSet: []*tcsms.SendStatus{
			{
				Code:     common.StringPtr(code),
				Message:  common.StringPtr(message),
				SerialNo: common.StringPtr(serial),
			},
		},
	}
	return resp
}

type fakeTencentClient struct {
	req  *tcsms.SendSmsRequest
	resp *tcsms.SendSmsResponse
	err  error
}

func (c *fakeTencentClient) SendSmsWithContext(_ context.Context, req *tcsms.SendSmsRequest) (*tcsms.SendSmsResponse, error) {
	c.req = req
	return c.resp, c.err
}
