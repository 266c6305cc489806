package codec

import (
	"strings"
	"testing"
)

type benchBox struct {
	ClassID int `json:"class_id"`
	Top     int `json:"top"`
	Left    int `json:"left"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

type benchLine struct {
	SourceRef string `json:"source-ref"`
	ID        string `json:"id"`
	Label     struct {
		Annotations []benchBox `json:"annotations"`
		ImageSize   []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
			Depth  int `json:"depth"`
		} `json:"image_size"`
	} `json:"label"`
	Meta struct {
		Objects    []struct{ Confidence float64 } `json:"objects"`
		ClassMap   map[string]string              `json:"class-map"`
		Type       string                         `json:"type"`
		HumanLabel string                         `json:"human-annotated"`
	} `json:"label-metadata"`
}

var benchData = []byte(`{"source-ref":"s3://bucket/unlabeled/000123.jpg","id":"000123",` +
	`"label":{"annotations":[{"class_id":0,"top":10,"left":20,"width":100,"height":80},` +
	`{"class_id":2,"top":140,"left":5,"width":40,"height":44}],` +
	`"image_size":[{"width":640,"height":480,"depth":3}]},` +
	`"label-metadata":{"objects":[{"Confidence":0.91},{"Confidence":0.77}],` +
	`"class-map":{"0":"car","2":"bicycle"},"type":"groundtruth/object-detection","human-annotated":"no"}}`)

func benchCodecs() []Codec { return []Codec{StdJSON{}, GoJSON{}} }

func BenchmarkUnmarshal_DetectionLine(b *testing.B) {
	for _, c := range benchCodecs() {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(benchData)))
			for b.Loop() {
				var line benchLine
				if err := c.Unmarshal(benchData, &line); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkMarshal_DetectionLine(b *testing.B) {
	var line benchLine
	if err := Default.Unmarshal(benchData, &line); err != nil {
		b.Fatal(err)
	}

	for _, c := range benchCodecs() {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := c.Marshal(line); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompress_Manifest(b *testing.B) {
	manifest := []byte(strings.Repeat(string(benchData)+"\n", 256))

	for _, c := range []Compression{CompressionZSTD, CompressionLZ4} {
		b.Run(c.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(manifest)))
			for b.Loop() {
				if _, err := Compress(manifest, c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
