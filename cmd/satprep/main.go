// Command satprep prepares satellite-imagery detection datasets: it converts xView GeoJSON
// annotations to YOLO label files, splits the corpus into train/val/test sets, and generates
// the artifacts the detector framework trains from.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/satvision/satprep"
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", filepath.Base(os.Args[0]))
	_, _ = fmt.Fprintln(os.Stderr, "Commands:")
	_, _ = fmt.Fprintln(os.Stderr, "  convert\tconvert a GeoJSON annotation store to YOLO label files")
	_, _ = fmt.Fprintln(os.Stderr, "  split\t\tpartition an image/label corpus into train/val/test sets")
	_, _ = fmt.Fprintln(os.Stderr, "  datayaml\twrite the detector data configuration file")
	_, _ = fmt.Fprintln(os.Stderr, "  tfrecord\texport an image/label corpus as TFRecord shards")
	_, _ = fmt.Fprintln(os.Stderr, "  augment\twrite augmented copies of an image/label corpus")
	_, _ = fmt.Fprintf(os.Stderr, "\nRun %s <command> -h for command options.\n",
		filepath.Base(os.Args[0]))
}

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(os.Args[2:])
	case "split":
		err = runSplit(os.Args[2:])
	case "datayaml":
		err = runDataYAML(os.Args[2:])
	case "tfrecord":
		err = runTFRecord(os.Args[2:])
	case "augment":
		err = runAugment(os.Args[2:])
	case "-h", "-help", "--help":
		usage()
		return
	default:
		log.Printf("Unknown command %q", os.Args[1])
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// requirePaths exits with usage output when any of the given flag values is empty.
func requirePaths(fs *flag.FlagSet, flags map[string]string) {
	for name, value := range flags {
		if value == "" {
			log.Printf("Missing required flag -%s", name)
			fs.Usage()
			os.Exit(1)
		}
	}
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	annotations := fs.String("annotations", "", "The `path` to the GeoJSON annotation store")
	images := fs.String("images", "", "The `path` to the image input directory")
	out := fs.String("out", "dataset/labels", "The `path` to the label output directory")
	classes := fs.String("classes", "",
		"The `path` to the class taxonomy YAML file (empty uses the built-in taxonomy)")
	_ = fs.Parse(args)

	requirePaths(fs, map[string]string{"annotations": *annotations, "images": *images})

	_, err := satprep.Convert(*annotations, *images, *out, *classes)
	return err
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	images := fs.String("images", "", "The `path` to the image input directory")
	labels := fs.String("labels", "", "The `path` to the label input directory")
	out := fs.String("out", "dataset", "The `path` to the split dataset output directory")
	trainRatio := fs.Float64("train-ratio", 0.8, "The `ratio` of pairs assigned to the train set")
	valRatio := fs.Float64("val-ratio", 0.15, "The `ratio` of pairs assigned to the val set")
	testRatio := fs.Float64("test-ratio", 0.05, "The `ratio` of pairs assigned to the test set")
	seed := fs.Int64("seed", 42, "The random `seed` for the shuffle")
	_ = fs.Parse(args)

	requirePaths(fs, map[string]string{"images": *images, "labels": *labels})

	_, err := satprep.Split(*images, *labels, *out, *trainRatio, *valRatio, *testRatio, *seed)
	return err
}

func runDataYAML(args []string) error {
	fs := flag.NewFlagSet("datayaml", flag.ExitOnError)
	out := fs.String("out", "dataset/data.yaml", "The output `path` for the data configuration")
	train := fs.String("train", "", "The `path` to the train image directory")
	val := fs.String("val", "", "The `path` to the val image directory")
	test := fs.String("test", "", "The `path` to the test image directory (optional)")
	classes := fs.String("classes", "",
		"The `path` to the class taxonomy YAML file (empty uses the built-in taxonomy)")
	_ = fs.Parse(args)

	requirePaths(fs, map[string]string{"train": *train, "val": *val})

	cm, err := satprep.LoadClassMap(*classes, true)
	if err != nil {
		return err
	}
	return satprep.WriteDataYAML(*out, *train, *val, *test, cm)
}

func runTFRecord(args []string) error {
	fs := flag.NewFlagSet("tfrecord", flag.ExitOnError)
	images := fs.String("images", "", "The `path` to the image input directory")
	labels := fs.String("labels", "", "The `path` to the label input directory")
	out := fs.String("out", "", "The output `path` for the TFRecord file(s)")
	labelMap := fs.String("label-map", "", "The output `path` for the prototxt label map")
	numShards := fs.Int("num-shards", 1, "The `number` of shard files to create")
	classes := fs.String("classes", "",
		"The `path` to the class taxonomy YAML file (empty uses the built-in taxonomy)")
	_ = fs.Parse(args)

	requirePaths(fs, map[string]string{
		"images": *images, "labels": *labels, "out": *out, "label-map": *labelMap,
	})

	cm, err := satprep.LoadClassMap(*classes, true)
	if err != nil {
		return err
	}
	return satprep.WriteTFRecord(*out, *labelMap, *images, *labels, cm, *numShards)
}

func runAugment(args []string) error {
	fs := flag.NewFlagSet("augment", flag.ExitOnError)
	images := fs.String("images", "", "The `path` to the image input directory")
	labels := fs.String("labels", "", "The `path` to the label input directory")
	imagesOut := fs.String("images-out", "", "The `path` to the augmented image output directory")
	labelsOut := fs.String("labels-out", "", "The `path` to the augmented label output directory")
	variants := fs.Int("variants", 2, "The `number` of augmented copies per pair")
	maxRotation := fs.Float64("max-rotation", 15, "The maximum absolute rotation `angle` in degrees")
	brightnessMin := fs.Float64("brightness-min", 0.7, "The minimum brightness `factor`")
	brightnessMax := fs.Float64("brightness-max", 1.3, "The maximum brightness `factor`")
	contrastMin := fs.Float64("contrast-min", 0.8, "The minimum contrast `factor`")
	contrastMax := fs.Float64("contrast-max", 1.2, "The maximum contrast `factor`")
	jpegQuality := fs.Int("jpeg-quality", 90, "The `quality` to use when encoding JPEGs [1, 100]")
	seed := fs.Int64("seed", 42, "The random `seed` for the jitter")
	_ = fs.Parse(args)

	requirePaths(fs, map[string]string{
		"images": *images, "labels": *labels, "images-out": *imagesOut, "labels-out": *labelsOut,
	})
	if *jpegQuality < 1 || *jpegQuality > 100 {
		*jpegQuality = 90
		log.Print("Invalid JPEG quality, setting it to ", *jpegQuality)
	}

	_, err := satprep.Augment(*images, *labels, *imagesOut, *labelsOut, satprep.AugmentOptions{
		Variants:      *variants,
		MaxRotation:   *maxRotation,
		BrightnessMin: *brightnessMin,
		BrightnessMax: *brightnessMax,
		ContrastMin:   *contrastMin,
		ContrastMax:   *contrastMax,
		JPEGQuality:   *jpegQuality,
		Seed:          *seed,
	})
	return err
}
