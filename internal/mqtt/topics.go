package mqtt

import (
	"fmt"
	"strings"
)

// Topic surface, everything under the configured prefix:
//
//	{prefix}/terminal/{terminalID}/speech              recognition events in
//	{prefix}/terminal/{terminalID}/online              presence flag in
//	{prefix}/terminal/{terminalID}/heartbeat           liveness ping in
//	{prefix}/terminal/{terminalID}/result/{requestID}  action ack in
//	{prefix}/terminal/{terminalID}/utterance           spoken reply out
//	{prefix}/terminal/{terminalID}/state               avatar snapshot out
//	{prefix}/terminal/{terminalID}/action/{requestID}  action request out

func TopicTerminalSpeech(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/speech", prefix)
}

func TopicTerminalOnline(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/online", prefix)
}

func TopicTerminalHeartbeat(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/heartbeat", prefix)
}

func TopicTerminalResult(prefix string) string {
	return fmt.Sprintf("%s/terminal/+/result/+", prefix)
}

func TopicUtterance(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/utterance", prefix, terminalID)
}

func TopicState(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/state", prefix, terminalID)
}

func TopicAction(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/action/%s", prefix, terminalID, requestID)
}

func TopicResult(prefix, terminalID, requestID string) string {
	return fmt.Sprintf("%s/terminal/%s/result/%s", prefix, terminalID, requestID)
}

func TopicSpeech(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/speech", prefix, terminalID)
}

func TopicOnline(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/online", prefix, terminalID)
}

func TopicHeartbeat(prefix, terminalID string) string {
	return fmt.Sprintf("%s/terminal/%s/heartbeat", prefix, terminalID)
}

// ParseTerminalID pulls the terminal segment out of an inbound topic. The
// topic must carry a kind segment after the id.
func ParseTerminalID(topic, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(topic, prefix+"/terminal/")
	if !ok {
		return "", fmt.Errorf("topic %q does not match %s/terminal/...", topic, prefix)
	}
	terminalID, kind, found := strings.Cut(rest, "/")
	if !found || terminalID == "" || kind == "" {
		return "", fmt.Errorf("topic %q is missing the terminal or kind segment", topic)
	}
	return terminalID, nil
}

// ParseRequestID returns the trailing request id of a result topic.
func ParseRequestID(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
