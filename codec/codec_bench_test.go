package codec

import (
	"testing"
)

type benchProperty struct {
	Tag   string `json:"tag"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type benchMessage struct {
	NID        uint32            `json:"nid"`
	Subject    string            `json:"subject"`
	Size       int64             `json:"size"`
	Recipients []string          `json:"recipients"`
	Headers    map[string]string `json:"headers"`
	Properties []benchProperty   `json:"properties"`
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func sampleMessage() benchMessage {
	return benchMessage{
		NID:        0x200024,
		Subject:    "Quarterly report",
		Size:       48213,
		Recipients: []string{"alice@example.com", "bob@example.com", "carol@example.com"},
		Headers: map[string]string{
			"Message-ID":   "<1@example.com>",
			"Content-Type": "multipart/mixed",
			"X-Mailer":     "Microsoft Outlook 16.0",
		},
		Properties: []benchProperty{
			{Tag: "0x0037001F", Type: "PT_UNICODE", Value: "Quarterly report"},
			{Tag: "0x0E060040", Type: "PT_SYSTIME", Value: "2024-02-29T09:31:15Z"},
			{Tag: "0x0E070003", Type: "PT_LONG", Value: "17"},
			{Tag: "0x0E080003", Type: "PT_LONG", Value: "48213"},
		},
	}
}

func BenchmarkCodec_Marshal_Message(b *testing.B) {
	msg := sampleMessage()
	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, msg) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, msg) })
}

func BenchmarkCodec_Unmarshal_Message(b *testing.B) {
	jsonData := MustMarshal(JSON{}, sampleMessage())

	b.Run("stdlib", func(b *testing.B) {
		var sink benchMessage
		benchmarkCodecUnmarshal(b, JSON{}, jsonData, &sink)
		_ = sink
	})
	b.Run("go-json", func(b *testing.B) {
		var sink benchMessage
		benchmarkCodecUnmarshal(b, GoJSON{}, jsonData, &sink)
		_ = sink
	})
}
