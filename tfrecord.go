package satprep

// TFRecord object detection export for the converted corpus.

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	tensorflow "github.com/ryszard/tfutils/proto/tensorflow/core/example"
)

// tfFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type tfFeatureMap map[string]interface{}

// WriteTFRecord serialises all (image, label) pairs from imagesDir/labelsDir into one or more
// TFRecord shard files stored under recordPath (with shard suffixes added when numShards > 1)
// and writes the class label map in prototxt format to labelMapPath.
//
// Label map ids are the dense class indices shifted by one, since id 0 is reserved in the
// detection label map convention.
func WriteTFRecord(recordPath, labelMapPath, imagesDir, labelsDir string, classes ClassMap,
		numShards int) (err error) {

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	images, err := imagesInDir(imagesDir)
	if err != nil {
		return err
	}

	pairs, err := pairWithLabels(images, labelsDir)
	if err != nil {
		return err
	}
	log.Printf("Writing %d examples to %d TFRecord shard(s)", len(pairs), numShards)

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(pairs)) / float64(numShards)))
	shardIdx := -1
	written := 0

	for i, pr := range pairs {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				_ = shardFile.Close()
				shardFile = nil
			}

			shardPath := recordPath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := pairFeatures(pr, classes)
		if err != nil {
			log.Printf("Failed to convert %q: %v", pr.imagePath, err)
			continue
		}

		tfExample := example.New(features)
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			_ = shardFile.Close()
			return fmt.Errorf("failed to write example for %q: %v", pr.imagePath, err)
		}
		written++
	}

	if shardFile != nil {
		if err := shardFile.Close(); err != nil {
			return err
		}
	}
	log.Printf("Wrote %d examples", written)

	return saveLabelMap(labelMapPath, classes)
}

// pairFeatures builds the detection feature map for a single (image, label) pair.
func pairFeatures(pr pair, classes ClassMap) (tfFeatureMap, error) {
	config, format, err := decodeImageConfig(pr.imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	imgData, err := os.ReadFile(pr.imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	boxes, err := ReadLabelFile(pr.labelPath)
	if err != nil {
		return nil, err
	}

	f := make(tfFeatureMap, 16)
	f["image/height"] = config.Height
	f["image/width"] = config.Width
	f["image/filename"] = filepath.Base(pr.imagePath)
	f["image/source_id"] = filepath.Base(pr.imagePath)
	f["image/encoded"] = imgData
	f["image/format"] = format

	names := classes.Names()
	xmins := make([]float32, len(boxes))
	ymins := make([]float32, len(boxes))
	xmaxs := make([]float32, len(boxes))
	ymaxs := make([]float32, len(boxes))
	texts := make([]string, len(boxes))
	labels := make([]int64, len(boxes))
	for i, b := range boxes {
		// Center/size fractions to normalised corner form.
		xmins[i] = float32(b.X - b.Width/2)
		ymins[i] = float32(b.Y - b.Height/2)
		xmaxs[i] = float32(b.X + b.Width/2)
		ymaxs[i] = float32(b.Y + b.Height/2)
		if b.Class >= 0 && b.Class < len(names) {
			texts[i] = names[b.Class]
		}
		labels[i] = int64(b.Class) + 1
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = texts
	f["image/object/class/label"] = labels

	return f, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveLabelMap writes the class taxonomy as a prototxt label map to path, one item per dense
// class in index order.
func saveLabelMap(path string, classes ClassMap) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	for i, name := range classes.Names() {
		if _, err := fmt.Fprintf(file, "item {\n  name: %q\n  id: %d\n}\n", name, i+1); err != nil {
			return err
		}
	}

	return nil
}
