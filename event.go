package autolabel

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/autolabel/codec"
)

// eventMetaData is the "meta_data" object the labeling state machine passes
// from step to step.
type eventMetaData struct {
	UnlabeledManifestURI  string `json:"UnlabeledManifestS3Uri"`
	IntermediateFolderURI string `json:"IntermediateFolderUri"`

	TransformConfig struct {
		OutputPath string `json:"S3OutputPath"`
	} `json:"transform_config"`

	Counts struct {
		InputTotal eventCount `json:"input_total"`
	} `json:"counts"`
}

// eventCount accepts counts written as numbers or as numeric strings.
type eventCount int

func (c *eventCount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("%w: count %s", ErrInvalidRequest, b)
	}
	*c = eventCount(n)
	return nil
}

// UnmarshalJSON decodes a Request from its flat form or from a state
// machine event. In an event the manifest, the prediction location, the
// intermediate folder and the input total sit under "meta_data"; values
// found there take precedence over flat keys. Fields absent from b keep
// their current value.
func (r *Request) UnmarshalJSON(b []byte) error {
	type flat Request
	if err := codec.Default.Unmarshal(b, (*flat)(r)); err != nil {
		return err
	}

	var ev struct {
		MetaData *eventMetaData `json:"meta_data"`
	}
	if err := codec.Default.Unmarshal(b, &ev); err != nil {
		return err
	}

	if md := ev.MetaData; md != nil {
		r.UnlabeledManifestURI = cmp.Or(md.UnlabeledManifestURI, r.UnlabeledManifestURI)
		r.PredictionsURI = cmp.Or(md.TransformConfig.OutputPath, r.PredictionsURI)
		r.IntermediateFolderURI = cmp.Or(md.IntermediateFolderURI, r.IntermediateFolderURI)
		r.InputTotal = cmp.Or(int(md.Counts.InputTotal), r.InputTotal)
	}
	return nil
}
